package scan

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"krx-gap-lab/internal/classify"
	"krx-gap-lab/internal/domain"
	"krx-gap-lab/internal/pricing"
	"krx-gap-lab/internal/storage"
)

// newsFlushEvery is the bulk-insert batch size for news_returns builds.
const newsFlushEvery = 1000

// NewsHistoryBuilder accumulates news_returns, the lighter ground-truth
// table behind the scanner's fallback path. Unlike HistoryBuilder it trusts
// the upstream classification on the news row and prices every candidate
// from one range-wide cache instead of per-row store queries.
type NewsHistoryBuilder struct {
	news        storage.NewsEventStore
	prices      storage.DailyPriceStore
	newsReturns storage.NewsReturnStore
	aliases     *classify.AliasMap
	log         zerolog.Logger
}

func NewNewsHistoryBuilder(
	news storage.NewsEventStore,
	prices storage.DailyPriceStore,
	newsReturns storage.NewsReturnStore,
	aliases *classify.AliasMap,
	log zerolog.Logger,
) *NewsHistoryBuilder {
	return &NewsHistoryBuilder{
		news:        news,
		prices:      prices,
		newsReturns: newsReturns,
		aliases:     aliases,
		log:         log.With().Str("component", "news_history_builder").Logger(),
	}
}

// Build processes classified news with news_date in [startDate, endDate]
// (compact YYYYMMDD) and upserts one news_returns row per resolvable
// (news, stock, event) combination that has an anchor in the price cache.
func (b *NewsHistoryBuilder) Build(ctx context.Context, startDate, endDate string) (processed, saved int, err error) {
	newsList, err := b.news.GetByDateRange(ctx, startDate, endDate)
	if err != nil {
		return 0, 0, fmt.Errorf("fetch news %s..%s: %w", startDate, endDate, err)
	}
	b.log.Info().
		Str("start", startDate).
		Str("end", endDate).
		Int("news", len(newsList)).
		Msg("news history build started")
	if len(newsList) == 0 {
		return 0, 0, nil
	}

	cache, err := LoadPriceCache(ctx, b.prices, startDate, endDate)
	if err != nil {
		return 0, 0, err
	}
	b.log.Info().Int("stocks", cache.Stocks()).Msg("price cache loaded")

	var batch []*domain.NewsReturn
	for _, news := range newsList {
		processed++

		for _, record := range b.expand(news, cache) {
			batch = append(batch, record)
			saved++
			if len(batch) >= newsFlushEvery {
				if err := b.newsReturns.UpsertBulk(ctx, batch); err != nil {
					return processed, saved - len(batch), fmt.Errorf("flush news returns: %w", err)
				}
				batch = batch[:0]
				b.log.Info().Int("processed", processed).Int("saved", saved).Msg("news history progress")
			}
		}
	}
	if len(batch) > 0 {
		if err := b.newsReturns.UpsertBulk(ctx, batch); err != nil {
			return processed, saved - len(batch), fmt.Errorf("flush news returns: %w", err)
		}
	}

	b.log.Info().Int("processed", processed).Int("saved", saved).Msg("news history build complete")
	return processed, saved, nil
}

func (b *NewsHistoryBuilder) expand(news *domain.NewsEvent, cache *PriceCache) []*domain.NewsReturn {
	companies := splitList(news.Companies)

	var events []string
	for _, ev := range splitList(news.EventCodes) {
		if strings.EqualFold(ev, domain.EventCodeOther) {
			continue
		}
		events = append(events, ev)
	}
	if len(events) == 0 {
		return nil
	}

	var out []*domain.NewsReturn
	for _, company := range companies {
		code, ok := b.aliases.StockCode(company)
		if !ok {
			continue
		}
		code = pricing.PadStockCode(code)

		anchor, returns, ok := cache.ReturnsFrom(code, news.NewsDate, pricing.DefaultHorizons)
		if !ok {
			continue
		}

		for _, ev := range events {
			out = append(out, &domain.NewsReturn{
				NewsID:      news.NewsID,
				StockCode:   code,
				StockName:   company,
				EventCode:   ev,
				NewsDate:    news.NewsDate,
				AnchorPrice: anchor.Close,
				Return1D:    returns[1],
				Return3D:    returns[3],
				Return5D:    returns[5],
			})
		}
	}
	return out
}
