// Package client is a thin HTTP client for the vantor-soc API.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/vantor-systems/vantor-soc/internal/models"
)

// Client talks to a running vantor-soc instance. Actor and tenant are
// forwarded on every request as identity headers.
type Client struct {
	baseURL string
	actor   string
	tenant  string
	client  *http.Client
}

func New(baseURL, actor, tenant string) *Client {
	return &Client{
		baseURL: baseURL,
		actor:   actor,
		tenant:  tenant,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) doRequest(method, path string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewBuffer(bodyBytes)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.actor != "" {
		req.Header.Set("X-Actor-ID", c.actor)
	}
	if c.tenant != "" {
		req.Header.Set("X-Tenant-ID", c.tenant)
	}

	return c.client.Do(req)
}

func (c *Client) do(method, path string, body, out interface{}) error {
	resp, err := c.doRequest(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (status %d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func listQuery(page, limit int, filters map[string]string) string {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	for k, v := range filters {
		if v != "" {
			q.Set(k, v)
		}
	}
	return "?" + q.Encode()
}

func (c *Client) CreateAlert(req *models.CreateAlertRequest) (*models.Alert, error) {
	var alert models.Alert
	if err := c.do(http.MethodPost, "/api/v1/alerts", req, &alert); err != nil {
		return nil, err
	}
	return &alert, nil
}

func (c *Client) ListAlerts(page, limit int, filters map[string]string) (*models.ListAlertsResponse, error) {
	var resp models.ListAlertsResponse
	if err := c.do(http.MethodGet, "/api/v1/alerts"+listQuery(page, limit, filters), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetAlert(id string) (*models.Alert, error) {
	var alert models.Alert
	if err := c.do(http.MethodGet, "/api/v1/alerts/"+id, nil, &alert); err != nil {
		return nil, err
	}
	return &alert, nil
}

func (c *Client) CreateCase(req *models.CreateCaseRequest) (*models.Case, error) {
	var cs models.Case
	if err := c.do(http.MethodPost, "/api/v1/cases", req, &cs); err != nil {
		return nil, err
	}
	return &cs, nil
}

func (c *Client) ListCases(page, limit int, filters map[string]string) (*models.ListCasesResponse, error) {
	var resp models.ListCasesResponse
	if err := c.do(http.MethodGet, "/api/v1/cases"+listQuery(page, limit, filters), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetCase(id string) (*models.Case, error) {
	var cs models.Case
	if err := c.do(http.MethodGet, "/api/v1/cases/"+id, nil, &cs); err != nil {
		return nil, err
	}
	return &cs, nil
}

func (c *Client) LinkAlert(caseID, alertID string) error {
	body := map[string]string{"alert_id": alertID}
	return c.do(http.MethodPost, "/api/v1/cases/"+caseID+"/alerts", body, nil)
}

func (c *Client) CreatePlaybook(req *models.CreatePlaybookRequest) (*models.Playbook, error) {
	var pb models.Playbook
	if err := c.do(http.MethodPost, "/api/v1/playbooks", req, &pb); err != nil {
		return nil, err
	}
	return &pb, nil
}

func (c *Client) ListPlaybooks(page, limit int, filters map[string]string) (*models.ListPlaybooksResponse, error) {
	var resp models.ListPlaybooksResponse
	if err := c.do(http.MethodGet, "/api/v1/playbooks"+listQuery(page, limit, filters), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) EnablePlaybook(id string) (*models.Playbook, error) {
	var pb models.Playbook
	if err := c.do(http.MethodPost, "/api/v1/playbooks/"+id+"/enable", nil, &pb); err != nil {
		return nil, err
	}
	return &pb, nil
}

func (c *Client) DisablePlaybook(id string) (*models.Playbook, error) {
	var pb models.Playbook
	if err := c.do(http.MethodPost, "/api/v1/playbooks/"+id+"/disable", nil, &pb); err != nil {
		return nil, err
	}
	return &pb, nil
}

// RunPlaybook requests a manual execution of a playbook.
func (c *Client) RunPlaybook(id, alertID, caseID, reason string) (*models.PlaybookExecution, error) {
	body := map[string]string{}
	if alertID != "" {
		body["alert_id"] = alertID
	}
	if caseID != "" {
		body["case_id"] = caseID
	}
	if reason != "" {
		body["reason"] = reason
	}

	var ex models.PlaybookExecution
	if err := c.do(http.MethodPost, "/api/v1/playbooks/"+id+"/run", body, &ex); err != nil {
		return nil, err
	}
	return &ex, nil
}

func (c *Client) ListExecutions(page, limit int, filters map[string]string) (*models.ListExecutionsResponse, error) {
	var resp models.ListExecutionsResponse
	if err := c.do(http.MethodGet, "/api/v1/executions"+listQuery(page, limit, filters), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetExecution(id string) (*models.PlaybookExecution, error) {
	var ex models.PlaybookExecution
	if err := c.do(http.MethodGet, "/api/v1/executions/"+id, nil, &ex); err != nil {
		return nil, err
	}
	return &ex, nil
}

func (c *Client) ApproveExecution(id string) (*models.PlaybookExecution, error) {
	var ex models.PlaybookExecution
	if err := c.do(http.MethodPost, "/api/v1/executions/"+id+"/approve", nil, &ex); err != nil {
		return nil, err
	}
	return &ex, nil
}

func (c *Client) RejectExecution(id, reason string) (*models.PlaybookExecution, error) {
	body := map[string]string{"reason": reason}
	var ex models.PlaybookExecution
	if err := c.do(http.MethodPost, "/api/v1/executions/"+id+"/reject", body, &ex); err != nil {
		return nil, err
	}
	return &ex, nil
}

func (c *Client) CancelExecution(id string) (*models.PlaybookExecution, error) {
	var ex models.PlaybookExecution
	if err := c.do(http.MethodPost, "/api/v1/executions/"+id+"/cancel", nil, &ex); err != nil {
		return nil, err
	}
	return &ex, nil
}
