package tmdb

import (
	"context"

	"github.com/John-Robertt/catalogd/internal/domain"
	providerx "github.com/John-Robertt/catalogd/internal/provider"
)

const directorJob = "Director"

var _ providerx.Enricher = (*Client)(nil)

// Enrich searches TMDb for title/year, picks the best match and maps its
// details onto a domain.Enrichment. Every failure comes back as *providerx.Error.
func (c *Client) Enrich(ctx context.Context, title string, year int) (domain.Enrichment, error) {
	if !c.Enabled() {
		return domain.Enrichment{}, providerx.Fail("tmdb", providerx.StageEnrich, providerx.ErrDisabled)
	}

	resp, err := c.SearchMovie(ctx, title, year)
	if err != nil {
		return domain.Enrichment{}, providerx.Fail(c.Name(), providerx.StageSearch, err)
	}
	if len(resp.Results) == 0 {
		return domain.Enrichment{}, providerx.Fail(c.Name(), providerx.StageSearch, providerx.ErrNotFound)
	}

	best := BestMatch(resp.Results, year)
	details, err := c.GetMovieDetails(ctx, best.ID)
	if err != nil {
		return domain.Enrichment{}, providerx.Fail(c.Name(), providerx.StageEnrich, err)
	}

	return c.toEnrichment(best.ID, details), nil
}

// BestMatch defaults to the first result; when a year is known and there is
// more than one candidate, the first result released in that exact year wins.
func BestMatch(results []Result, year int) Result {
	if len(results) == 0 {
		return Result{}
	}
	best := results[0]
	if year <= 0 || len(results) < 2 {
		return best
	}
	for _, r := range results {
		if r.Year() == year {
			return r
		}
	}
	return best
}

func (c *Client) toEnrichment(id int64, d *MovieDetails) domain.Enrichment {
	e := domain.Enrichment{
		TMDBID:      id,
		Description: d.Overview,
		PosterURL:   c.PosterURL(d.PosterPath),
		Runtime:     d.Runtime,
	}

	if len(d.Genres) > 0 {
		e.Genres = make([]string, 0, len(d.Genres))
		for _, g := range d.Genres {
			e.Genres = append(e.Genres, g.Name)
		}
	}

	for _, crew := range d.Credits.Crew {
		if crew.Job == directorJob {
			e.Director = crew.Name
			break
		}
	}

	cast := d.Credits.Cast
	if len(cast) > domain.MaxActors {
		cast = cast[:domain.MaxActors]
	}
	if len(cast) > 0 {
		e.Actors = make([]string, 0, len(cast))
		for _, m := range cast {
			e.Actors = append(e.Actors, m.Name)
		}
	}
	return e
}
