package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records checkout submissions and their per-vendor outcomes.
type CheckoutMetrics struct {
	submissions  *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	vendorOrders *prometheus.CounterVec
	deliveryFees prometheus.Histogram
	geoFallbacks *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_submissions_total",
		Help: "Checkout submissions by overall status.",
	}, []string{"status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Time spent submitting a checkout, including the order service call.",
		Buckets: prometheus.DefBuckets,
	}, []string{"status"})
	vendorOrders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_vendor_orders_total",
		Help: "Vendor sub-orders by outcome.",
	}, []string{"outcome"})
	deliveryFees := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_delivery_fee",
		Help:    "Delivery fee charged per vendor sub-order.",
		Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34},
	})
	geoFallbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_geolocation_fallbacks_total",
		Help: "Checkouts priced without user coordinates.",
	}, []string{"reason"})
	reg.MustRegister(submissions, duration, vendorOrders, deliveryFees, geoFallbacks)
	return &CheckoutMetrics{
		submissions:  submissions,
		duration:     duration,
		vendorOrders: vendorOrders,
		deliveryFees: deliveryFees,
		geoFallbacks: geoFallbacks,
	}
}

// ObserveSubmission counts a submission and records its duration.
func (c *CheckoutMetrics) ObserveSubmission(status string, duration time.Duration) {
	if c == nil || c.submissions == nil {
		return
	}
	label := normalizeLabel(status)
	c.submissions.WithLabelValues(label).Inc()
	c.duration.WithLabelValues(label).Observe(duration.Seconds())
}

// IncVendorOutcome counts one vendor sub-order outcome.
func (c *CheckoutMetrics) IncVendorOutcome(outcome string) {
	if c == nil || c.vendorOrders == nil {
		return
	}
	c.vendorOrders.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveDeliveryFee records one vendor's delivery fee.
func (c *CheckoutMetrics) ObserveDeliveryFee(fee float64) {
	if c == nil || c.deliveryFees == nil {
		return
	}
	c.deliveryFees.Observe(fee)
}

// IncGeoFallback counts a checkout that could not resolve user coordinates.
func (c *CheckoutMetrics) IncGeoFallback(reason string) {
	if c == nil || c.geoFallbacks == nil {
		return
	}
	c.geoFallbacks.WithLabelValues(normalizeLabel(reason)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
