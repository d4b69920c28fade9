package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"bili-radar/internal/config"
	"bili-radar/internal/model"

	"github.com/sirupsen/logrus"
)

// 搜索排序方式枚举（综合、点击、发布时间、弹幕、收藏）。
const (
	OrderTotalRank = "totalrank"
	OrderClick     = "click"
	OrderPubdate   = "pubdate"
	OrderDanmaku   = "dm"
	OrderFavorite  = "stow"
)

var validOrders = map[string]struct{}{
	OrderTotalRank: {},
	OrderClick:     {},
	OrderPubdate:   {},
	OrderDanmaku:   {},
	OrderFavorite:  {},
}

// ValidOrder 判断排序参数是否在枚举内。
func ValidOrder(order string) bool {
	_, ok := validOrders[order]
	return ok
}

// APIError 表示响应体中携带的业务错误码（code != 0）。
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error code=%d message=%s", e.Code, e.Message)
}

// Client 封装搜索与视频详情两个接口，复用同一个 http.Client。
// 本层不做重试，失败直接返回给采集/增强循环处理。
type Client struct {
	cfg    config.APIConfig
	http   *http.Client
	logger *logrus.Logger
}

// New 创建 Client，hc 为 nil 时按配置超时构建默认客户端。
func New(cfg config.APIConfig, hc *http.Client, logger *logrus.Logger) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second}
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Client{cfg: cfg, http: hc, logger: logger}
}

// searchEnvelope 搜索接口响应包络。
type searchEnvelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Result []resultGroup `json:"result"`
	} `json:"data"`
}

// resultGroup 按 result_type 分组的搜索结果。
type resultGroup struct {
	ResultType string            `json:"result_type"`
	Data       []json.RawMessage `json:"data"`
}

// Search 搜索视频，返回原始条目列表。
// 结果分组解析规则：优先取 result_type 为 video 的分组；没有时取第一个分组；
// 没有任何分组时返回空列表（区别于错误）。
func (c *Client) Search(ctx context.Context, keyword string, page int, order string) ([]json.RawMessage, error) {
	if page < 1 {
		return nil, fmt.Errorf("page must be >= 1, got %d", page)
	}
	if !ValidOrder(order) {
		return nil, fmt.Errorf("invalid order %q", order)
	}

	params := url.Values{}
	params.Set("keyword", keyword)
	params.Set("page", strconv.Itoa(page))
	params.Set("order", order)
	params.Set("duration", "0")
	params.Set("tids", "0")
	params.Set("search_type", "video")

	var env searchEnvelope
	if err := c.getJSON(ctx, c.cfg.SearchURL+"?"+params.Encode(), &env); err != nil {
		return nil, err
	}
	if env.Code != 0 {
		return nil, &APIError{Code: env.Code, Message: env.Message}
	}

	for _, group := range env.Data.Result {
		if group.ResultType == "video" {
			return group.Data, nil
		}
	}
	if len(env.Data.Result) > 0 {
		return env.Data.Result[0].Data, nil
	}
	return []json.RawMessage{}, nil
}

// ViewDetail 视频详情接口返回的权威数据。
type ViewDetail struct {
	Bvid      string        `json:"bvid"`
	Aid       model.FlexInt `json:"aid"`
	Duration  model.FlexInt `json:"duration"`
	Cid       model.FlexInt `json:"cid"`
	Tname     string        `json:"tname"`
	Copyright model.FlexInt `json:"copyright"`
	Desc      string        `json:"desc"`
	Dynamic   string        `json:"dynamic"`
	Stat      *ViewStat     `json:"stat"`
	Owner     ViewOwner     `json:"owner"`
	Pages     []ViewPage    `json:"pages"`
	Subtitle  *ViewSubtitle `json:"subtitle"`
	Staff     []ViewStaff   `json:"staff"`
	ArgueInfo *ViewArgue    `json:"argue_info"`
	Honor     *ViewHonor    `json:"honor_reply"`
}

// ViewStat 互动计数。
type ViewStat struct {
	View     model.FlexInt `json:"view"`
	Danmaku  model.FlexInt `json:"danmaku"`
	Reply    model.FlexInt `json:"reply"`
	Favorite model.FlexInt `json:"favorite"`
	Coin     model.FlexInt `json:"coin"`
	Like     model.FlexInt `json:"like"`
	Share    model.FlexInt `json:"share"`
}

// ViewOwner UP 主信息。
type ViewOwner struct {
	Name string        `json:"name"`
	Mid  model.FlexInt `json:"mid"`
	Face string        `json:"face"`
}

// ViewPage 分 P 信息，仅用于统计分 P 数。
type ViewPage struct {
	Cid model.FlexInt `json:"cid"`
}

// ViewSubtitle 字幕信息。
type ViewSubtitle struct {
	List []struct {
		Lan    string `json:"lan"`
		LanDoc string `json:"lan_doc"`
	} `json:"list"`
}

// ViewStaff 联合投稿成员。
type ViewStaff struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

// ViewArgue 争议提示信息。
type ViewArgue struct {
	ArgueMsg string `json:"argue_msg"`
}

// ViewHonor 荣誉信息。
type ViewHonor struct {
	Honor []struct {
		Desc string `json:"desc"`
	} `json:"honor"`
}

type viewEnvelope struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    *ViewDetail `json:"data"`
}

// View 按 bvid 获取视频详情。
func (c *Client) View(ctx context.Context, bvid string) (*ViewDetail, error) {
	if bvid == "" {
		return nil, fmt.Errorf("bvid must not be empty")
	}

	params := url.Values{}
	params.Set("bvid", bvid)

	var env viewEnvelope
	if err := c.getJSON(ctx, c.cfg.ViewURL+"?"+params.Encode(), &env); err != nil {
		return nil, err
	}
	if env.Code != 0 {
		return nil, &APIError{Code: env.Code, Message: env.Message}
	}
	if env.Data == nil {
		return nil, fmt.Errorf("view %s: empty data", bvid)
	}
	return env.Data, nil
}

// getJSON 发起请求并解析响应体，网络、状态码与 JSON 错误统一包装返回。
func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	if c.cfg.Referer != "" {
		req.Header.Set("Referer", c.cfg.Referer)
	}
	if c.cfg.Origin != "" {
		req.Header.Set("Origin", c.cfg.Origin)
	}
	if c.cfg.Cookie != "" {
		req.Header.Set("Cookie", c.cfg.Cookie)
	}
}
