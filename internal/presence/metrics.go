package presence

import "github.com/prometheus/client_golang/prometheus"

var deviceOnline = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "sunward",
	Name:      "device_online",
	Help:      "1 while the device is believed to be online",
})

func init() {
	prometheus.MustRegister(deviceOnline)
}
