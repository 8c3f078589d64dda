// Package memberclient looks members up in the member service over HTTP.
package memberclient

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/utafrali/addressbook/internal/domain"
	"github.com/utafrali/addressbook/pkg/httpclient"
)

const serviceName = "member-service"

// Client implements repository.MemberRepository against the member service.
type Client struct {
	baseURL string
	http    httpclient.Doer
}

// New creates a member service client. baseURL is the service root, for
// example http://member-service:8002.
func New(baseURL string, doer httpclient.Doer) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid member service url %q", baseURL)
	}
	return &Client{baseURL: u.String(), http: doer}, nil
}

type memberEnvelope struct {
	Data *domain.Member `json:"data"`
}

// FindByID fetches GET /api/v1/members/{id}. A 404 yields an
// apperrors.ErrNotFound error.
func (c *Client) FindByID(ctx context.Context, id int64) (*domain.Member, error) {
	endpoint, err := url.JoinPath(c.baseURL, "api", "v1", "members", strconv.FormatInt(id, 10))
	if err != nil {
		return nil, fmt.Errorf("build member url: %w", err)
	}

	var env memberEnvelope
	if err := httpclient.GetJSON(ctx, c.http, endpoint, serviceName, &env); err != nil {
		return nil, fmt.Errorf("get member %d: %w", id, err)
	}
	if env.Data == nil {
		return nil, fmt.Errorf("get member %d: empty %s response", id, serviceName)
	}
	return env.Data, nil
}
