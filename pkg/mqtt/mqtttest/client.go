// Package mqtttest provides an in-memory mqtt.Client for tests.
package mqtttest

import (
	"fmt"
	"path"
	"strings"
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"
)

type Message struct {
	Topic    string
	Payload  string
	Retained bool
}

// Client records published messages and lets tests deliver messages to the
// subscribed handlers. Topics are recorded with the prefix applied.
type Client struct {
	Prefix string

	mutex     sync.Mutex
	published []Message
	handlers  map[string]paho.MessageHandler
}

func NewClient(prefix string) *Client {
	return &Client{
		Prefix:   prefix,
		handlers: map[string]paho.MessageHandler{},
	}
}

func (c *Client) Connect() error    { return nil }
func (c *Client) Disconnect() error { return nil }

func (c *Client) Publish(topic string, message interface{}) error {
	return c.PublishRaw(c.GetFullTopic(topic), message, false)
}

func (c *Client) PublishAndRetain(topic string, message interface{}) error {
	return c.PublishRaw(c.GetFullTopic(topic), message, true)
}

func (c *Client) PublishRaw(topic string, message interface{}, retain bool) error {
	var payload string
	switch m := message.(type) {
	case []byte:
		payload = string(m)
	case string:
		payload = m
	default:
		payload = fmt.Sprint(m)
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.published = append(c.published, Message{Topic: topic, Payload: payload, Retained: retain})
	return nil
}

func (c *Client) Subscribe(topic string, messageHandler paho.MessageHandler) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.handlers[c.GetFullTopic(topic)] = messageHandler
	return nil
}

func (c *Client) GetFullTopic(topic string) string {
	return path.Join(c.Prefix, topic)
}

func (c *Client) ServerStatusTopic() string {
	return c.GetFullTopic("server/status")
}

// RawClient is not available in tests.
func (c *Client) RawClient() paho.Client {
	return nil
}

// Deliver calls every handler whose subscription matches the full topic and
// returns how many were called.
func (c *Client) Deliver(topic string, payload []byte) int {
	c.mutex.Lock()
	var handlers []paho.MessageHandler
	for filter, handler := range c.handlers {
		if matches(filter, topic) {
			handlers = append(handlers, handler)
		}
	}
	c.mutex.Unlock()

	for _, handler := range handlers {
		handler(nil, &message{topic: topic, payload: payload})
	}
	return len(handlers)
}

// Published returns a copy of the messages published so far.
func (c *Client) Published() []Message {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return append([]Message(nil), c.published...)
}

// Last returns the payload last published on the full topic.
func (c *Client) Last(topic string) (string, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	for i := len(c.published) - 1; i >= 0; i-- {
		if c.published[i].Topic == topic {
			return c.published[i].Payload, true
		}
	}
	return "", false
}

func matches(filter string, topic string) bool {
	filterLevels := strings.Split(filter, "/")
	topicLevels := strings.Split(topic, "/")
	for i, level := range filterLevels {
		if level == "#" {
			return true
		}
		if i >= len(topicLevels) {
			return false
		}
		if level != "+" && level != topicLevels[i] {
			return false
		}
	}
	return len(filterLevels) == len(topicLevels)
}

type message struct {
	topic   string
	payload []byte
}

func (m *message) Duplicate() bool   { return false }
func (m *message) Qos() byte         { return 0 }
func (m *message) Retained() bool    { return false }
func (m *message) Topic() string     { return m.topic }
func (m *message) MessageID() uint16 { return 0 }
func (m *message) Payload() []byte   { return m.payload }
func (m *message) Ack()              {}
