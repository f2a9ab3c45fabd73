package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"breakcode4d/internal/config"
	"breakcode4d/internal/database"
	"breakcode4d/internal/logger"
)

// ErrResultUnavailable 指定日期没有可用的开奖结果
var ErrResultUnavailable = errors.New("result unavailable")

// 结果页中头奖号码的位置
var firstPrizePattern = regexp.MustCompile(`id="1stPz">(\d{4})<`)

// Client 开奖结果页客户端
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// NewClient 创建新的API客户端
func NewClient(cfg *config.Source) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:   cfg.URL,
		userAgent: cfg.UserAgent,
	}
}

// FetchResult 获取某天的头奖号码
//
// 请求失败、非200或页面中找不到号码时返回包装了 ErrResultUnavailable 的错误。
func (c *Client) FetchResult(ctx context.Context, date time.Time) (string, error) {
	dateStr := date.Format(database.DateLayout)
	reqURL, err := c.resultURL(dateStr)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %v", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	logger.Debugf("Fetching result page: %s", reqURL)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s: HTTP request failed: %v", ErrResultUnavailable, dateStr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s: HTTP status %d", ErrResultUnavailable, dateStr, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %s: failed to read body: %v", ErrResultUnavailable, dateStr, err)
	}

	number, ok := ParseFirstPrize(string(body))
	if !ok {
		return "", fmt.Errorf("%w: %s: first prize not found", ErrResultUnavailable, dateStr)
	}
	return number, nil
}

// ParseFirstPrize 从结果页HTML中提取头奖号码
func ParseFirstPrize(html string) (string, bool) {
	m := firstPrizePattern.FindStringSubmatch(html)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func (c *Client) resultURL(date string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid source url %q: %v", c.baseURL, err)
	}
	q := u.Query()
	q.Set("past", "1")
	q.Set("d", date)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// GetAPIStats 获取客户端配置信息
func (c *Client) GetAPIStats() map[string]interface{} {
	return map[string]interface{}{
		"base_url": c.baseURL,
		"timeout":  c.httpClient.Timeout.String(),
	}
}
