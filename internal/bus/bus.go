// Package bus connects the controller to the MQTT broker and defines the
// topic layout shared with the device.
package bus

// A HandlerFunc receives an inbound message. Handlers run on the MQTT
// client's callback goroutine and must not block; forward into a channel for
// any real work.
type HandlerFunc func(topic, payload string)

// Bus is the publish/subscribe surface the components run against.
// Implemented by Client; tests substitute a fake.
type Bus interface {
	Publish(topic, payload string) error
	Subscribe(topic string, handler HandlerFunc) error
}
