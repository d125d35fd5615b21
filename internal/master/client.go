package master

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-resty/resty/v2"

	"main/internal/errors"
)

// rawRecord mirrors one entry of the stock master JSON feed.
type rawRecord struct {
	IssueCode             string  `json:"issueCode"`
	BasePrice10           float64 `json:"basePrice10"`
	LotSize               float64 `json:"lotSize"`
	CalcSharesOutstanding float64 `json:"calcSharesOutstanding"`
	TickType              int     `json:"tickType"`
}

// Client fetches the dated stock master file over HTTP.
type Client struct {
	http *resty.Client
}

// NewClient creates a client against the master file host.
func NewClient(baseURL string) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(30 * time.Second).
			SetRetryCount(3).
			SetRetryWaitTime(time.Second),
	}
}

// Fetch downloads and parses the stock master for a trading day.
func (c *Client) Fetch(ctx context.Context, day time.Time) (*Table, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("date", day.Format("20060102")).
		Get("/stockmaster")
	if err != nil {
		return nil, errors.Wrap(err, "fetch stock master")
	}
	if resp.IsError() {
		return nil, errors.New(fmt.Sprintf("fetch stock master: status %d", resp.StatusCode()))
	}
	return parse(resp.Body())
}

// LoadFile parses a stock master JSON file from disk, for replay and
// offline runs.
func LoadFile(path string) (*Table, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read stock master file")
	}
	return parse(buf)
}

func parse(buf []byte) (*Table, error) {
	var raws []rawRecord
	if err := json.Unmarshal(buf, &raws); err != nil {
		return nil, errors.Wrap(err, "parse stock master")
	}
	t := &Table{records: make(map[string]Record, len(raws))}
	for _, r := range raws {
		if r.IssueCode == "" {
			continue
		}
		t.records[r.IssueCode] = Record{
			Code:              r.IssueCode,
			PreviousClose:     r.BasePrice10 / 10,
			LotSize:           r.LotSize,
			SharesOutstanding: r.CalcSharesOutstanding,
			TickType:          r.TickType,
		}
	}
	if len(t.records) == 0 {
		return nil, errors.New("stock master is empty")
	}
	return t, nil
}

// NewTable builds a master table directly from records, for tests and
// simulated runs.
func NewTable(records ...Record) *Table {
	t := &Table{records: make(map[string]Record, len(records))}
	for _, r := range records {
		t.records[r.Code] = r
	}
	return t
}
