/**
 * @description
 * Server-sent-event subscriptions for the Horizon client. Horizon exposes its
 * streaming endpoints as SSE; this file implements a minimal EventSource-style
 * reader: it parses `id:`/`data:` fields, dispatches each JSON payload to the
 * subscriber callback, and reconnects with the last seen event id when the
 * connection drops. Reconnection here is transport-level behavior; subscribers
 * treat read errors as benign and keep their subscription open.
 *
 * @dependencies
 * - bufio, context, encoding/json, net/http, time: Standard Go libraries.
 */
package horizonclient

import (
	"bufio"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const streamReconnectDelay = time.Second

// StopFunc tears down a subscription. Safe to call more than once.
type StopFunc func()

// StreamAccount subscribes to change events for one account. Each inbound
// message invokes onMessage with no payload; the update itself is the signal.
// Errors are reported to onError and the stream reconnects.
func (c *Client) StreamAccount(ctx context.Context, accountID string, onMessage func(), onError func(error)) StopFunc {
	path := "/accounts/" + url.PathEscape(accountID)
	return c.streamEvents(ctx, path, "", func(data []byte, _ string) {
		onMessage()
	}, onError)
}

// StreamPayments subscribes to payment operations involving the account,
// resuming from cursor when it is non-empty. Records are delivered in paging
// token order.
func (c *Client) StreamPayments(ctx context.Context, accountID, cursor string, onMessage func(PaymentRecord), onError func(error)) StopFunc {
	path := "/accounts/" + url.PathEscape(accountID) + "/payments"
	return c.streamEvents(ctx, path, cursor, func(data []byte, _ string) {
		var record PaymentRecord
		if err := json.Unmarshal(data, &record); err != nil {
			log.Printf("level=warn component=horizon_client op=stream_payments msg=\"undecodable payment record\" err=%v", err)
			return
		}
		onMessage(record)
	}, onError)
}

// streamEvents runs the SSE read loop in a goroutine until the returned stop
// function is called or ctx is canceled. lastID doubles as the Horizon cursor
// query parameter on connect and reconnect.
func (c *Client) streamEvents(ctx context.Context, path, lastID string, onEvent func(data []byte, id string), onError func(error)) StopFunc {
	streamCtx, cancel := context.WithCancel(ctx)

	go func() {
		cursor := lastID
		for {
			nextID, err := c.readStream(streamCtx, path, cursor, onEvent)
			if nextID != "" {
				cursor = nextID
			}
			if streamCtx.Err() != nil {
				return
			}
			if err != nil && onError != nil {
				onError(err)
			}
			select {
			case <-streamCtx.Done():
				return
			case <-time.After(streamReconnectDelay):
			}
		}
	}()

	return func() { cancel() }
}

// readStream opens one SSE connection and consumes it until EOF or error.
// It returns the id of the last dispatched event so the caller can resume.
func (c *Client) readStream(ctx context.Context, path, cursor string, onEvent func(data []byte, id string)) (string, error) {
	streamURL := c.BaseURL + path
	if cursor != "" {
		streamURL += "?cursor=" + url.QueryEscape(cursor)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", streamURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/event-stream")

	// Streaming requests must not inherit the client-wide timeout.
	httpClient := &http.Client{Transport: c.HTTPClient.Transport}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &horizonProblem{Title: "stream connect failed", Status: resp.StatusCode}
	}

	reader := bufio.NewReader(resp.Body)
	var dataLines []string
	var eventID, lastID string

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return lastID, err
		}
		line = strings.TrimRight(line, "\r\n")

		switch {
		case line == "":
			// Blank line terminates one event.
			if len(dataLines) > 0 {
				data := strings.Join(dataLines, "\n")
				if isJSONObject(data) {
					onEvent([]byte(data), eventID)
					if eventID != "" {
						lastID = eventID
					}
				}
				dataLines = dataLines[:0]
				eventID = ""
			}
		case strings.HasPrefix(line, "id:"):
			eventID = strings.TrimSpace(strings.TrimPrefix(line, "id:"))
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
		// Comment lines (":...") and other fields are ignored.
	}
}

// isJSONObject filters out Horizon's "hello" and "byebye" keep-alive payloads.
func isJSONObject(data string) bool {
	trimmed := strings.TrimSpace(data)
	return strings.HasPrefix(trimmed, "{")
}
