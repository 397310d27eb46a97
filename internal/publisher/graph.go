package publisher

import (
	"context"
	"log/slog"

	"github.com/go-resty/resty/v2"
	"github.com/maheshrc27/postcast/internal/models"
	"github.com/maheshrc27/postcast/internal/transfer"
)

// graphClient issues Graph API calls shared by the Facebook and Instagram
// adapters.
type graphClient struct {
	platform models.Platform
	http     *resty.Client
	baseURL  string
}

func (g *graphClient) post(ctx context.Context, path string, form map[string]string, out any) error {
	var gerr transfer.GraphErrorResponse
	resp, err := g.http.R().
		SetContext(ctx).
		SetFormData(form).
		SetResult(out).
		SetError(&gerr).
		Post(g.baseURL + path)
	return g.check(resp, err, &gerr)
}

func (g *graphClient) get(ctx context.Context, path string, query map[string]string, out any) error {
	var gerr transfer.GraphErrorResponse
	resp, err := g.http.R().
		SetContext(ctx).
		SetQueryParams(query).
		SetResult(out).
		SetError(&gerr).
		Get(g.baseURL + path)
	return g.check(resp, err, &gerr)
}

func (g *graphClient) check(resp *resty.Response, err error, gerr *transfer.GraphErrorResponse) error {
	if err != nil {
		return transportError(g.platform, err)
	}
	if resp.IsError() {
		pe := statusError(g.platform, resp.StatusCode(), gerr.Error.Message).(*PublishError)
		if gerr.Error.IsTransient {
			pe.Kind = KindTransport
		}
		return pe
	}
	return nil
}

// insights reads Graph insight metrics for an object. A rejected call, such as
// a token without read_insights or a retired metric, yields empty insights so
// the caller reports those metrics as 0. Transport failures are returned.
func (g *graphClient) insights(ctx context.Context, objectID, metrics, token string) (*transfer.GraphInsights, error) {
	var out transfer.GraphInsights
	err := g.get(ctx, "/"+objectID+"/insights", map[string]string{
		"metric":       metrics,
		"access_token": token,
	}, &out)
	if err == nil {
		return &out, nil
	}
	if KindOf(err) != KindRejected {
		return nil, err
	}
	slog.Warn("insights unavailable, reporting zero", "platform", g.platform, "object_id", objectID, "err", err)
	return &transfer.GraphInsights{}, nil
}
