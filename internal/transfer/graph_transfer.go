package transfer

// GraphErrorResponse is the error envelope of the Facebook and Instagram
// Graph APIs.
type GraphErrorResponse struct {
	Error struct {
		Message        string `json:"message"`
		Type           string `json:"type"`
		Code           int    `json:"code"`
		ErrorSubcode   int    `json:"error_subcode"`
		IsTransient    bool   `json:"is_transient"`
		ErrorUserTitle string `json:"error_user_title"`
		ErrorUserMsg   string `json:"error_user_msg"`
		FbtraceID      string `json:"fbtrace_id"`
	} `json:"error"`
}

type GraphID struct {
	ID     string `json:"id"`
	PostID string `json:"post_id"`
}

type GraphContainerStatus struct {
	ID         string `json:"id"`
	StatusCode string `json:"status_code"`
	Status     string `json:"status"`
}

type GraphSummary struct {
	Summary struct {
		TotalCount int64 `json:"total_count"`
	} `json:"summary"`
}

type FacebookPostFields struct {
	ID       string       `json:"id"`
	Likes    GraphSummary `json:"likes"`
	Comments GraphSummary `json:"comments"`
	Shares   struct {
		Count int64 `json:"count"`
	} `json:"shares"`
}

type InstagramMediaFields struct {
	ID            string `json:"id"`
	LikeCount     int64  `json:"like_count"`
	CommentsCount int64  `json:"comments_count"`
}

type GraphInsights struct {
	Data []struct {
		Name   string `json:"name"`
		Values []struct {
			Value int64 `json:"value"`
		} `json:"values"`
		TotalValue *struct {
			Value int64 `json:"value"`
		} `json:"total_value"`
	} `json:"data"`
}

// Metric returns the named insight value, or 0 when the platform did not
// report it.
func (g *GraphInsights) Metric(name string) int64 {
	for _, d := range g.Data {
		if d.Name != name {
			continue
		}
		if d.TotalValue != nil {
			return d.TotalValue.Value
		}
		if len(d.Values) > 0 {
			return d.Values[len(d.Values)-1].Value
		}
	}
	return 0
}
