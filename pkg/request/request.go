/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package request

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gojek/heimdall/v7"
	"github.com/sirupsen/logrus"

	"github.com/apprenticelog/apprenticelog/pkg/logger"

	"github.com/opentracing-contrib/go-stdlib/nethttp"
	ot "github.com/opentracing/opentracing-go"
)

// IRequester exposes setters for headers and credentials and the final
// method to send the request: Send
type IRequester interface {
	GetHeaders() http.Header
	SetHeaders(map[string]string) IRequester
	SetBasicAuth(username, password string) IRequester
	Send(heimdall.Doer, string) (*Response, error)
}

// Response is a fully read HTTP response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// IsSuccess reports a 2xx status
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

type Requester struct {
	request *http.Request
}

// NewRequest creates a new Request with the given context, method, URL, and body.
// A nil body sends no payload.
func NewRequest(ctx context.Context, method string, url string, body []byte) (IRequester, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	return &Requester{request: req}, nil
}

func (r *Requester) GetHeaders() http.Header {
	return r.request.Header
}

func (r *Requester) SetHeaders(headers map[string]string) IRequester {
	for key, value := range headers {
		r.request.Header.Set(key, value)
	}
	return r
}

// SetBasicAuth is a no-op when username is empty
func (r *Requester) SetBasicAuth(username, password string) IRequester {
	if username != "" {
		r.request.SetBasicAuth(username, password)
	}
	return r
}

// Send performs the request with httpClient and reads the whole body.
// operation names the call in logs.
func (r *Requester) Send(httpClient heimdall.Doer, operation string) (*Response, error) {
	// transmit span's TraceContext as HTTP headers to api
	if span := ot.SpanFromContext(r.request.Context()); span != nil {
		_, ok := span.Tracer().(ot.NoopTracer)
		if !ok {
			var ht *nethttp.Tracer
			r.request, ht = nethttp.TraceRequest(ot.GlobalTracer(), r.request)
			defer ht.Finish()
		}
	}

	start := time.Now()
	log := logger.Logger(r.request.Context()).WithFields(logrus.Fields{
		"operation": operation,
		"method":    r.request.Method,
		"url":       r.request.URL.String(),
	})
	log.Debug("sending http request")

	response, err := httpClient.Do(r.request)

	log = log.WithField("durationMs", time.Since(start).Milliseconds())
	if err != nil && response == nil {
		log.WithError(err).Warn("http request failed")
		return nil, err
	}
	defer response.Body.Close()

	responseBody, readErr := io.ReadAll(response.Body)
	if readErr != nil {
		return nil, readErr
	}

	log.WithField("status", response.StatusCode).Debug("received http response")
	return &Response{
		StatusCode: response.StatusCode,
		Header:     response.Header,
		Body:       responseBody,
	}, nil
}
