package reports

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://sellingpartnerapi-na.amazon.com"
	reportsPath    = "/reports/2021-06-30"

	// TypeFBAPlanning — отчёт планирования поставок FBA.
	TypeFBAPlanning = "GET_FBA_INVENTORY_PLANNING_DATA"
)

// Статусы обработки отчёта.
const (
	StatusInQueue    = "IN_QUEUE"
	StatusInProgress = "IN_PROGRESS"
	StatusDone       = "DONE"
	StatusCancelled  = "CANCELLED"
	StatusFatal      = "FATAL"
)

type Report struct {
	ReportID         string `json:"reportId"`
	ReportType       string `json:"reportType"`
	ProcessingStatus string `json:"processingStatus"`
	ReportDocumentID string `json:"reportDocumentId"`
}

type Document struct {
	ReportDocumentID     string `json:"reportDocumentId"`
	URL                  string `json:"url"`
	CompressionAlgorithm string `json:"compressionAlgorithm"`
}

// Client — клиент API отчётов маркетплейса. Токен доступа передаётся
// готовым: обновлением занимается внешний процесс.
type Client struct {
	baseURL       string
	token         string
	marketplaceID string
	http          *http.Client
}

func NewClient(baseURL, token, marketplaceID string, hc *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		token:         token,
		marketplaceID: marketplaceID,
		http:          hc,
	}
}

// CreateReport заказывает отчёт и возвращает его идентификатор.
func (c *Client) CreateReport(ctx context.Context, reportType string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"reportType":     reportType,
		"marketplaceIds": []string{c.marketplaceID},
	})
	if err != nil {
		return "", err
	}
	var resp struct {
		ReportID string `json:"reportId"`
	}
	if err := c.do(ctx, http.MethodPost, reportsPath+"/reports", bytes.NewReader(body), &resp); err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}
	if resp.ReportID == "" {
		return "", fmt.Errorf("create report: empty report id")
	}
	return resp.ReportID, nil
}

func (c *Client) GetReport(ctx context.Context, reportID string) (Report, error) {
	var r Report
	if err := c.do(ctx, http.MethodGet, reportsPath+"/reports/"+reportID, nil, &r); err != nil {
		return Report{}, fmt.Errorf("get report %s: %w", reportID, err)
	}
	return r, nil
}

func (c *Client) GetDocument(ctx context.Context, documentID string) (Document, error) {
	var d Document
	if err := c.do(ctx, http.MethodGet, reportsPath+"/documents/"+documentID, nil, &d); err != nil {
		return Document{}, fmt.Errorf("get document %s: %w", documentID, err)
	}
	return d, nil
}

// Download скачивает содержимое документа по подписанной ссылке.
func (c *Client) Download(ctx context.Context, d Document) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download document %s: status %d", d.ReportDocumentID, resp.StatusCode)
	}
	var r io.Reader = resp.Body
	if strings.EqualFold(d.CompressionAlgorithm, "GZIP") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}
	return io.ReadAll(r)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("x-amz-access-token", c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return &APIError{Status: resp.StatusCode, Body: string(data)}
	}
	return json.Unmarshal(data, out)
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Body)
}

// Temporary — ошибка, после которой запрос имеет смысл повторить.
func (e *APIError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}
