// Package feed reads device status payloads pushed over a websocket by an
// external poller.
package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Message is one status payload as sent on the feed. Sysinfo is kept raw and
// handed over untouched to the callbacks.
type Message struct {
	Device  string          `json:"device"`
	Sysinfo json.RawMessage `json:"sysinfo"`
}

type Callback func(message Message)

// Client is the interface definition as used by the bridge modules, the
// interface is primarily to allow mocking tests.
type Client interface {
	// Connect dials the feed and starts reading messages.
	Connect() error
	// Disconnect closes the websocket and waits for the reader to stop.
	Disconnect() error

	Subscribe(id string, callback Callback) error
	Unsubscribe(id string) error
}

type client struct {
	url string

	connection *websocket.Conn
	readerDone chan struct{}
	closing    atomic.Bool

	callbacks     map[string]Callback
	callbackMutex sync.RWMutex
}

func NewClient(url string) Client {
	return &client{
		url:       url,
		callbacks: map[string]Callback{},
	}
}

func (c *client) Connect() error {
	log.Trace().Str("url", c.url).Msg("Connecting to feed websocket")
	connection, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		return fmt.Errorf("unable to connect to feed websocket: %w", err)
	}
	c.connection = connection
	c.readerDone = make(chan struct{})
	c.closing.Store(false)

	go func() {
		defer close(c.readerDone)
		for {
			var message Message
			if err := connection.ReadJSON(&message); err != nil {
				if c.closing.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure) || errors.Is(err, websocket.ErrCloseSent) {
					break
				}
				var syntaxErr *json.SyntaxError
				var typeErr *json.UnmarshalTypeError
				if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
					log.Warn().Err(err).Msg("Skipping undecodable feed message")
					continue
				}
				log.Error().Err(err).Msg("Feed reading error")
				break
			}
			if message.Device == "" || len(message.Sysinfo) == 0 {
				log.Warn().Msg("Feed message without device or sysinfo")
				continue
			}
			log.Trace().Str("device", message.Device).Msg("Feed message received")
			c.callbackMutex.RLock()
			for _, callback := range c.callbacks {
				callback(message)
			}
			c.callbackMutex.RUnlock()
		}
		log.Warn().Msg("Closing feed reader")
	}()

	return nil
}

func (c *client) Disconnect() error {
	if c.connection == nil {
		return nil
	}
	c.closing.Store(true)
	err := c.connection.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		log.Debug().Err(err).Msg("Unable to send close message to feed")
	}
	closeErr := c.connection.Close()
	<-c.readerDone
	c.connection = nil
	return closeErr
}

func (c *client) Subscribe(id string, callback Callback) error {
	c.callbackMutex.Lock()
	defer c.callbackMutex.Unlock()
	if _, exists := c.callbacks[id]; exists {
		return errors.New("Feed callback with id " + id + " already exists")
	}
	c.callbacks[id] = callback
	return nil
}

func (c *client) Unsubscribe(id string) error {
	c.callbackMutex.Lock()
	defer c.callbackMutex.Unlock()
	if _, exists := c.callbacks[id]; !exists {
		return errors.New("Feed callback with id " + id + " does not exist")
	}
	delete(c.callbacks, id)
	return nil
}
