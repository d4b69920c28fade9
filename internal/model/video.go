package model

// VideoRecord 表示一条视频数据
// - Bvid: 平台唯一标识，也是去重键
// - Pubdate/Created: 发布时间与创建时间（Unix 秒），Pubdate 为 0 时回退 Created
// - View..Share: 原始互动计数，缺失时为 0
// - SourceKeyword/CollectedAt: 采集来源信息
// - EngagementScore 及之后的字段由分析阶段计算，采集阶段不填

type VideoRecord struct {
	Bvid            string `csv:"bvid" json:"bvid"`
	Aid             int64  `csv:"aid" json:"aid"`
	Title           string `csv:"title" json:"title"`
	Author          string `csv:"author" json:"author"`
	Mid             int64  `csv:"mid" json:"mid"`
	Description     string `csv:"description" json:"description"`
	DurationSeconds int64  `csv:"duration_seconds" json:"duration_seconds"`
	Pubdate         int64  `csv:"pubdate" json:"pubdate"`
	Created         int64  `csv:"created" json:"created"`

	View     int64 `csv:"view" json:"view"`
	Danmaku  int64 `csv:"danmaku" json:"danmaku"`
	Reply    int64 `csv:"reply" json:"reply"`
	Favorite int64 `csv:"favorite" json:"favorite"`
	Coin     int64 `csv:"coin" json:"coin"`
	Like     int64 `csv:"like" json:"like"`
	Share    int64 `csv:"share" json:"share"`

	Tag      string `csv:"tag" json:"tag"`
	TypeID   int64  `csv:"typeid" json:"typeid"`
	TypeName string `csv:"typename" json:"typename"`
	Pic      string `csv:"pic" json:"pic"`
	ArcURL   string `csv:"arcurl" json:"arcurl"`

	// 以下字段由详情接口补充
	Cid       int64  `csv:"cid" json:"cid"`
	PartCount int64  `csv:"pages" json:"pages"`
	OwnerFace string `csv:"owner_face" json:"owner_face"`
	Copyright int64  `csv:"copyright" json:"copyright"`
	Dynamic   string `csv:"dynamic" json:"dynamic"`
	Subtitle  string `csv:"subtitle" json:"subtitle"`
	Staff     string `csv:"staff" json:"staff"`
	ArgueMsg  string `csv:"argue_msg" json:"argue_msg"`
	Honors    string `csv:"honors" json:"honors"`

	SourceKeyword string `csv:"search_keyword" json:"search_keyword"`
	CollectedAt   int64  `csv:"collected_at" json:"collected_at"`

	// 派生指标
	Year            int     `csv:"year" json:"year"`
	Month           int     `csv:"month" json:"month"`
	Quarter         int     `csv:"quarter" json:"quarter"`
	EngagementScore float64 `csv:"engagement_score" json:"engagement_score"`
	EngagementRate  float64 `csv:"engagement_rate" json:"engagement_rate"`
	SentimentScore  float64 `csv:"sentiment_score" json:"sentiment_score"`
	Sentiment       string  `csv:"sentiment" json:"sentiment"`
}

// 情感标签取值。
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// EffectiveTimestamp 返回用于时间过滤与分桶的时间戳：优先发布时间，缺失时回退创建时间。
func (v *VideoRecord) EffectiveTimestamp() int64 {
	if v.Pubdate > 0 {
		return v.Pubdate
	}
	return v.Created
}

// ClampCounters 将互动计数收敛到非负区间。
func (v *VideoRecord) ClampCounters() {
	for _, p := range []*int64{&v.View, &v.Danmaku, &v.Reply, &v.Favorite, &v.Coin, &v.Like, &v.Share, &v.DurationSeconds} {
		if *p < 0 {
			*p = 0
		}
	}
}
