package api

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/scirpter/CWL-Discord-Bot/internal/clash"
	"github.com/scirpter/CWL-Discord-Bot/internal/config"
	"github.com/scirpter/CWL-Discord-Bot/internal/constants"
	"github.com/scirpter/CWL-Discord-Bot/internal/domain"
)

const cocAPIBase = "https://api.clashofclans.com/v1"

// The upstream uses "#0" as a round slot that has not been paired yet.
const placeholderWarTag = "#0"

func isPlaceholderWarTag(warTag string) bool {
	return warTag == "" || warTag == placeholderWarTag
}

// CocClient wraps the Clash of Clans API behind a single bounded gate:
// at most GatewayMaxInFlight concurrent requests and GatewayRequestsPerSecond
// requests per second, submission order preserved. Every call retries up to
// GatewayMaxRetries times with exponential backoff.
type CocClient struct {
	token   string
	baseURL string
	client  *fasthttp.Client
	pool    pond.Pool
	limiter *rate.Limiter
	logger  zerolog.Logger

	statsMu sync.Mutex
	stats   GateStats
}

// GateStats is process-lifetime bookkeeping for the request gate. It resets
// on restart.
type GateStats struct {
	Requests  int64     `json:"requests"`
	Retries   int64     `json:"retries"`
	Failures  int64     `json:"failures"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewCocClient(cfg *config.Config, logger zerolog.Logger) *CocClient {
	return &CocClient{
		token:   cfg.CocAPIToken,
		baseURL: cocAPIBase,
		client: &fasthttp.Client{
			MaxConnsPerHost:     constants.GatewayMaxConnsPerHost,
			ReadTimeout:         constants.GatewayRequestTimeout,
			WriteTimeout:        constants.GatewayRequestTimeout,
			MaxIdleConnDuration: constants.GatewayIdleConnDuration,
		},
		pool:    pond.NewPool(constants.GatewayMaxInFlight),
		limiter: rate.NewLimiter(rate.Limit(constants.GatewayRequestsPerSecond), constants.GatewayRequestsPerSecond),
		logger:  logger,
	}
}

func (c *CocClient) Close() {
	c.pool.StopAndWait()
}

func (c *CocClient) Stats() GateStats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}

func (c *CocClient) GetPlayer(ctx context.Context, tag string) (*Player, error) {
	encoded, err := encodeTag(tag)
	if err != nil {
		return nil, err
	}
	return fetchJSON[Player](ctx, c, "/players/"+encoded)
}

func (c *CocClient) GetClan(ctx context.Context, tag string) (*Clan, error) {
	encoded, err := encodeTag(tag)
	if err != nil {
		return nil, err
	}
	return fetchJSON[Clan](ctx, c, "/clans/"+encoded)
}

// GetCurrentWar returns nil without error when the clan has no current war.
// The upstream reports that case as a 404.
func (c *CocClient) GetCurrentWar(ctx context.Context, tag string) (*War, error) {
	encoded, err := encodeTag(tag)
	if err != nil {
		return nil, err
	}

	war, err := fetchJSON[War](ctx, c, "/clans/"+encoded+"/currentwar")
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return war, nil
}

// GetLeagueWars fetches the clan's league group, flattens all paired rounds
// and fetches each war concurrently. A missing league group means no active
// league and yields an empty result. A failure fetching one individual war
// is logged and that war is dropped; the call still succeeds with the rest.
func (c *CocClient) GetLeagueWars(ctx context.Context, tag string) ([]*War, error) {
	encoded, err := encodeTag(tag)
	if err != nil {
		return nil, err
	}

	group, err := fetchJSON[LeagueGroup](ctx, c, "/clans/"+encoded+"/currentwar/leaguegroup")
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	var warTags []string
	for _, round := range group.Rounds {
		for _, warTag := range round.WarTags {
			if isPlaceholderWarTag(warTag) {
				continue
			}
			warTags = append(warTags, warTag)
		}
	}

	fetched := make([]*War, len(warTags))
	g, gctx := errgroup.WithContext(ctx)
	for i, warTag := range warTags {
		g.Go(func() error {
			warEncoded, encErr := encodeTag(warTag)
			if encErr != nil {
				c.logger.Warn().Err(encErr).Str("war_tag", warTag).Msg("skipping league war with malformed tag")
				return nil
			}
			war, fetchErr := fetchJSON[War](gctx, c, "/clanwarleagues/wars/"+warEncoded)
			if fetchErr != nil {
				c.logger.Warn().Err(fetchErr).Str("war_tag", warTag).Msg("failed to fetch league war, continuing with remaining wars")
				return nil
			}
			fetched[i] = war
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	wars := make([]*War, 0, len(fetched))
	for _, war := range fetched {
		if war != nil {
			wars = append(wars, war)
		}
	}
	return wars, nil
}

func encodeTag(tag string) (string, error) {
	if !clash.IsValidTag(tag) {
		return "", &domain.ValidationError{Msg: fmt.Sprintf("malformed tag %q", tag)}
	}
	return clash.EncodeTagForPath(tag), nil
}

func fetchJSON[T any](ctx context.Context, c *CocClient, path string) (*T, error) {
	var result T
	err := c.pool.SubmitErr(func() error {
		body, err := c.request(ctx, path)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(body, &result); err != nil {
			return fmt.Errorf("failed to decode upstream response for %s: %w", path, err)
		}
		return nil
	}).Wait()
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *CocClient) request(ctx context.Context, path string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= constants.GatewayMaxRetries; attempt++ {
		if attempt > 0 {
			c.bump(func(s *GateStats) { s.Retries++ })
			backoff := constants.GatewayRetryBaseDelay * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, err := c.doOnce(ctx, path)
		if err == nil {
			return body, nil
		}
		// 404 and 403 are definitive answers, not transient faults.
		if domain.IsNotFound(err) || domain.IsForbidden(err) {
			return nil, err
		}
		lastErr = err
	}

	c.bump(func(s *GateStats) { s.Failures++ })
	return nil, lastErr
}

func (c *CocClient) doOnce(ctx context.Context, path string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Authorization", "Bearer "+c.token)

	c.bump(func(s *GateStats) { s.Requests++ })

	deadline := time.Now().Add(constants.GatewayRequestTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("upstream request for %s failed: %w", path, err)
	}

	status := resp.StatusCode()
	if status >= 200 && status < 300 {
		return append([]byte(nil), resp.Body()...), nil
	}

	body := string(resp.Body())
	switch status {
	case fasthttp.StatusNotFound:
		return nil, &domain.NotFoundError{Resource: path}
	case fasthttp.StatusForbidden:
		return nil, &domain.ForbiddenError{Status: status, Body: body}
	default:
		return nil, &domain.UpstreamError{Status: status, Body: body}
	}
}

func (c *CocClient) bump(update func(*GateStats)) {
	c.statsMu.Lock()
	update(&c.stats)
	c.stats.UpdatedAt = time.Now()
	c.statsMu.Unlock()
}
