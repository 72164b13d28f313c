// Package client is a typed client for the Frage EDU REST API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/amork0112-rgb/frageedu/core"
	"github.com/amork0112-rgb/frageedu/core/admission"
	"github.com/amork0112-rgb/frageedu/core/news"
	"github.com/amork0112-rgb/frageedu/core/user"
)

const defaultTimeout = 15 * time.Second

// APIError is a non-2xx answer of the API.
type APIError struct {
	StatusCode int
	Detail     string
	Fields     map[string]string
}

func (e *APIError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("%d: %s", e.StatusCode, e.Detail)
	}
	flds := make([]string, 0, len(e.Fields))
	for k, v := range e.Fields {
		flds = append(flds, k+": "+v)
	}
	return fmt.Sprintf("%d: %s (%s)", e.StatusCode, e.Detail, strings.Join(flds, "; "))
}

type (
	AuthResponse struct {
		Message        string    `json:"message"`
		Token          string    `json:"token"`
		User           user.User `json:"user"`
		HouseholdToken string    `json:"household_token"`
	}

	AdmissionResponse struct {
		admission.Admission
		Progress admission.Progress `json:"progress"`
	}

	NewsPage struct {
		Articles   []news.Summary `json:"articles"`
		Pagination core.Page      `json:"pagination"`
	}
)

type Client struct {
	baseURL string
	token   string
	rc      *rest.Client
}

// New returns a client for the API served at baseURL (e.g. "https://frage.edu/api").
func New(baseURL string, httpClient ...*http.Client) *Client {
	hc := &http.Client{Timeout: defaultTimeout}
	if len(httpClient) > 0 && httpClient[0] != nil {
		hc = httpClient[0]
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		rc:      &rest.Client{HTTPClient: hc},
	}
}

// WithToken returns a copy of the client that authenticates with the bearer token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

func (c *Client) do(ctx context.Context, method rest.Method, path string, query map[string]string, in, out interface{}) error {
	req := rest.Request{
		Method:      method,
		BaseURL:     c.baseURL + path,
		Headers:     map[string]string{"Accept": "application/json"},
		QueryParams: query,
	}
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encoding request body")
		}
		req.Body = body
		req.Headers["Content-Type"] = "application/json"
	}
	if c.token != "" {
		req.Headers["Authorization"] = "Bearer " + c.token
	}

	httpReq, err := rest.BuildRequestObject(req)
	if err != nil {
		return errors.Wrapf(err, "building %s %s", method, path)
	}
	res, err := c.rc.MakeRequest(httpReq.WithContext(ctx))
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	resp, err := rest.BuildResponse(res)
	if err != nil {
		return errors.Wrapf(err, "reading %s %s", method, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp)
	}
	if out == nil {
		return nil
	}
	return errors.Wrap(json.Unmarshal([]byte(resp.Body), out), "decoding response body")
}

func newAPIError(resp *rest.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var body struct {
		Detail string            `json:"detail"`
		Fields map[string]string `json:"fields"`
	}
	if err := json.Unmarshal([]byte(resp.Body), &body); err == nil && body.Detail != "" {
		apiErr.Detail = body.Detail
		apiErr.Fields = body.Fields
	} else {
		apiErr.Detail = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

// Auth

func (c *Client) Signup(ctx context.Context, nu user.NewUser) (AuthResponse, error) {
	var resp AuthResponse
	err := c.do(ctx, rest.Post, "/signup", nil, nu, &resp)
	return resp, err
}

func (c *Client) Login(ctx context.Context, email, pwd string) (AuthResponse, error) {
	var resp AuthResponse
	err := c.do(ctx, rest.Post, "/login", nil, map[string]string{"email": email, "password": pwd}, &resp)
	return resp, err
}

func (c *Client) Profile(ctx context.Context) (user.User, error) {
	var usr user.User
	err := c.do(ctx, rest.Get, "/profile", nil, nil, &usr)
	return usr, err
}

// Admission

func admissionPath(token, suffix string) string {
	return "/admission/" + url.PathEscape(token) + suffix
}

func (c *Client) Admission(ctx context.Context, householdToken string) (AdmissionResponse, error) {
	var resp AdmissionResponse
	err := c.do(ctx, rest.Get, admissionPath(householdToken, ""), nil, nil, &resp)
	return resp, err
}

func (c *Client) UpdateConsent(ctx context.Context, householdToken string, data admission.ConsentUpdate) error {
	return c.do(ctx, rest.Put, admissionPath(householdToken, "/consent"), nil, data, nil)
}

func (c *Client) UpdateForms(ctx context.Context, householdToken string, data admission.FormsUpdate) error {
	return c.do(ctx, rest.Put, admissionPath(householdToken, "/forms"), nil, data, nil)
}

func (c *Client) UpdateGuides(ctx context.Context, householdToken string) error {
	return c.do(ctx, rest.Put, admissionPath(householdToken, "/guides"), nil, nil, nil)
}

func (c *Client) UpdateChecklist(ctx context.Context, householdToken string, data admission.ChecklistUpdate) error {
	return c.do(ctx, rest.Put, admissionPath(householdToken, "/checklist"), nil, data, nil)
}

// News

// News lists published articles; zero filter fields are left out of the query.
func (c *Client) News(ctx context.Context, filter news.QueryFilter) (NewsPage, error) {
	query := make(map[string]string)
	if filter.Query != "" {
		query["query"] = filter.Query
	}
	if filter.Branch != "" {
		query["branch"] = filter.Branch
	}
	if filter.Page > 0 {
		query["page"] = strconv.Itoa(filter.Page)
	}
	if filter.Limit > 0 {
		query["limit"] = strconv.Itoa(filter.Limit)
	}

	var resp NewsPage
	err := c.do(ctx, rest.Get, "/news", query, nil, &resp)
	return resp, err
}

// Article fetches a published article by id or slug.
func (c *Client) Article(ctx context.Context, idOrSlug string) (news.Detail, error) {
	var detail news.Detail
	err := c.do(ctx, rest.Get, "/news/"+url.PathEscape(idOrSlug), nil, nil, &detail)
	return detail, err
}
