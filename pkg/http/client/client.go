// Package client talks to the controller's HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/vespa-cd/controller/pkg/api"
	"github.com/vespa-cd/controller/pkg/application"
	"github.com/vespa-cd/controller/pkg/buildsystem"
	ctlerr "github.com/vespa-cd/controller/pkg/errors"
	transport "github.com/vespa-cd/controller/pkg/http"
	"github.com/vespa-cd/controller/pkg/job"
)

type Token string

func (t Token) Set(req *http.Request) {
	if string(t) != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", t))
	}
}

type Client struct {
	client   *http.Client
	token    Token
	router   *mux.Router
	endpoint string
}

var _ api.Server = &Client{}

func New(c *http.Client, router *mux.Router, endpoint string, t Token) *Client {
	return &Client{
		client:   c,
		token:    t,
		router:   router,
		endpoint: endpoint,
	}
}

func (c *Client) ReportJob(ctx context.Context, report application.JobReport) error {
	return c.PostWithBody(ctx, transport.ReportJob, report, transport.JobVars(report.Application, report.JobType)...)
}

func (c *Client) TriggerChange(ctx context.Context, id application.ID, change api.ChangeSpec) error {
	return c.PostWithBody(ctx, transport.TriggerChange, change, transport.ApplicationVars(id)...)
}

func (c *Client) CancelChange(ctx context.Context, id application.ID) error {
	return c.methodWithResp(ctx, "DELETE", nil, transport.CancelChange, nil, transport.ApplicationVars(id)...)
}

func (c *Client) ForceTrigger(ctx context.Context, id application.ID, jobType job.Type, reason string) error {
	return c.PostWithBody(ctx, transport.ForceTrigger, api.ForceTriggerRequest{Reason: reason}, transport.JobVars(id, jobType)...)
}

func (c *Client) GetApplication(ctx context.Context, id application.ID) (api.ApplicationStatus, error) {
	var res api.ApplicationStatus
	err := c.Get(ctx, &res, transport.GetApplication, transport.ApplicationVars(id)...)
	return res, err
}

// ClaimJob returns nil, and no error, when the queue is empty.
func (c *Client) ClaimJob(ctx context.Context) (*buildsystem.Job, error) {
	var res *buildsystem.Job
	err := c.methodWithResp(ctx, "POST", &res, transport.ClaimJob, nil)
	return res, err
}

func (c *Client) Sweep(ctx context.Context) error {
	return c.PostWithBody(ctx, transport.Sweep, nil)
}

// --- Request helpers

// PostWithBody is a post request with a json-ified body. If body is
// nil, nothing is sent.
func (c *Client) PostWithBody(ctx context.Context, route string, body interface{}, urlParams ...string) error {
	return c.methodWithResp(ctx, "POST", nil, route, body, urlParams...)
}

// methodWithResp handles body and path encoding, as well as decoding
// the response into the provided destination. The response is only
// decoded into dest if it is non-empty.
func (c *Client) methodWithResp(ctx context.Context, method string, dest interface{}, route string, body interface{}, urlParams ...string) error {
	u, err := transport.MakeURL(c.endpoint, c.router, route, urlParams...)
	if err != nil {
		return errors.Wrap(err, "constructing URL")
	}

	var bodyBytes []byte
	if body != nil {
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encoding request body")
		}
	}

	req, err := http.NewRequest(method, u.String(), bytes.NewReader(bodyBytes))
	if err != nil {
		return errors.Wrapf(err, "constructing request %s", u)
	}
	req = req.WithContext(ctx)

	c.token.Set(req)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.executeRequest(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBytes, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "reading response from server")
	}
	if len(respBytes) == 0 || dest == nil {
		return nil
	}
	if err := json.Unmarshal(respBytes, dest); err != nil {
		return errors.Wrap(err, "decoding response from server")
	}
	return nil
}

// Get executes a get request against the controller, and unmarshals
// the response into dest, if not nil.
func (c *Client) Get(ctx context.Context, dest interface{}, route string, urlParams ...string) error {
	return c.methodWithResp(ctx, "GET", dest, route, nil, urlParams...)
}

func (c *Client) executeRequest(req *http.Request) (*http.Response, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "executing HTTP request")
	}
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent, http.StatusAccepted:
		return resp, nil
	default:
		defer resp.Body.Close()
		body, err := ioutil.ReadAll(resp.Body)
		if err != nil {
			return nil, errors.Wrap(err, "reading response body of error")
		}
		// Use the content type to discriminate between our own
		// errors and whatever else might be in the way.
		if strings.HasPrefix(resp.Header.Get(http.CanonicalHeaderKey("Content-Type")), "application/json") {
			var niceError ctlerr.Error
			if err := json.Unmarshal(body, &niceError); err != nil {
				return nil, errors.Wrap(err, "decoding response body of error")
			}
			// just in case it's JSON but not one of our own errors
			if niceError.Err != nil {
				return nil, &niceError
			}
		}
		return nil, errors.New(resp.Status + " " + string(body))
	}
}
