package market

import (
	"context"

	"github.com/aristath/portfolio-manager/internal/clientdata"
	"github.com/aristath/portfolio-manager/internal/clients/newsapi"
	"github.com/rs/zerolog"
)

const newsCacheKey = "stock_market"

// NewsFetcher fetches the raw news feed
type NewsFetcher interface {
	StockNews(ctx context.Context) ([]newsapi.Article, error)
}

// NewsService serves the stock news feed with caching
type NewsService struct {
	fetcher NewsFetcher
	cache   *clientdata.Cache
	log     zerolog.Logger
}

// NewNewsService creates a news service.
// cache is optional - if nil, caching is disabled.
func NewNewsService(fetcher NewsFetcher, cache *clientdata.Cache, log zerolog.Logger) *NewsService {
	return &NewsService{
		fetcher: fetcher,
		cache:   cache,
		log:     log.With().Str("service", "news").Logger(),
	}
}

// StockNews returns the cached feed when fresh, otherwise fetches it.
// Any failure yields an empty list.
func (s *NewsService) StockNews(ctx context.Context) []newsapi.Article {
	if s.cache != nil {
		var cached []newsapi.Article
		entry, err := s.cache.Lookup(ctx, clientdata.News, newsCacheKey, &cached)
		if err == nil && entry.State == clientdata.Fresh {
			return cached
		}
	}

	articles, err := s.fetcher.StockNews(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("News fetch failed, returning empty feed")
		return []newsapi.Article{}
	}

	if s.cache != nil {
		if err := s.cache.Put(ctx, clientdata.News, newsCacheKey, articles); err != nil {
			s.log.Warn().Err(err).Msg("Failed to cache news")
		}
	}

	return articles
}
