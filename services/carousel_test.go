package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lattice-site/models"
)

func testFigures(n int) []models.FigureItem {
	items := make([]models.FigureItem, n)
	for i := range items {
		items[i] = models.FigureItem{
			ID:      fmt.Sprintf("fig-%d", i+1),
			Title:   fmt.Sprintf("Figure %d", i+1),
			Image:   fmt.Sprintf("img/figure-%d.png", i+1),
			Caption: fmt.Sprintf("Caption for figure %d", i+1),
		}
	}
	return items
}

func newReadyCarousel(t *testing.T, n int) *Carousel {
	t.Helper()
	c := NewCarousel("", time.Hour, 100, zap.NewNop())
	c.SetItems(testFigures(n))
	return c
}

func TestCarouselStates(t *testing.T) {
	c := NewCarousel("", time.Hour, 100, zap.NewNop())
	assert.Equal(t, CarouselLoading, c.View().State)

	c.SetItems(nil)
	assert.Equal(t, CarouselError, c.View().State, "an empty figure list is a load failure")

	c = NewCarousel("", time.Hour, 100, zap.NewNop())
	c.SetItems(testFigures(3))
	view := c.View()
	assert.Equal(t, CarouselReady, view.State)
	assert.Equal(t, 1, view.Active)
	assert.Equal(t, 3, view.Count)
}

func TestAdvanceWrapsCircularly(t *testing.T) {
	c := newReadyCarousel(t, 3)

	c.Advance()
	assert.Equal(t, 2, c.View().Active)
	c.Advance()
	assert.Equal(t, 3, c.View().Active)
	c.Advance()
	assert.Equal(t, 1, c.View().Active, "advancing past the last slide wraps to the first")
}

func TestJumpBounds(t *testing.T) {
	c := newReadyCarousel(t, 5)

	require.NoError(t, c.Jump(4))
	assert.Equal(t, 4, c.View().Active)

	assert.Error(t, c.Jump(0))
	assert.Error(t, c.Jump(6))
	assert.Equal(t, 4, c.View().Active, "rejected jumps leave the position untouched")
}

func TestIndicatorWindowSmallCountShowsAll(t *testing.T) {
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, IndicatorWindow(3, 7))
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}, IndicatorWindow(11, 11))
}

func TestIndicatorWindowWrapsAroundActive(t *testing.T) {
	// 15 slides, active slide 1: five before wrap to the tail.
	assert.Equal(t, []int{11, 12, 13, 14, 15, 1, 2, 3, 4, 5, 6}, IndicatorWindow(1, 15))
	assert.Equal(t, []int{3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13}, IndicatorWindow(8, 15))
	assert.Equal(t, []int{10, 11, 12, 13, 14, 15, 1, 2, 3, 4, 5}, IndicatorWindow(15, 15))
}

func TestImageCandidateFallback(t *testing.T) {
	c := newReadyCarousel(t, 2)

	assert.Equal(t, "/img/figure-1.png", c.View().Image)

	c.ReportImageError(1)
	assert.Equal(t, "/static/img/figure-1.png", c.View().Image,
		"first failure moves to the static/ prefixed candidate")

	c.ReportImageError(1)
	assert.Equal(t, "/"+PlaceholderImage, c.View().Image,
		"exhausted candidates settle on the placeholder")

	c.ReportImageError(1)
	assert.Equal(t, "/"+PlaceholderImage, c.View().Image,
		"further failures do not loop back to the first candidate")
}

func TestImageFallbackIsPerSlide(t *testing.T) {
	c := newReadyCarousel(t, 3)

	c.ReportImageError(1)
	require.NoError(t, c.Jump(2))
	assert.Equal(t, "/img/figure-2.png", c.View().Image,
		"slide 2 is unaffected by slide 1's failures")

	require.NoError(t, c.Jump(1))
	assert.Equal(t, "/static/img/figure-1.png", c.View().Image)
}

func TestStaticPathHasSingleCandidate(t *testing.T) {
	c := NewCarousel("", time.Hour, 100, zap.NewNop())
	c.SetItems([]models.FigureItem{{Title: "t", Image: "static/img/plot.png"}})

	assert.Equal(t, "/static/img/plot.png", c.View().Image)
	c.ReportImageError(1)
	assert.Equal(t, "/"+PlaceholderImage, c.View().Image,
		"a path already under static/ falls straight to the placeholder")
}

func TestCandidatesHonorBasePath(t *testing.T) {
	c := NewCarousel("/lattice/", time.Hour, 100, zap.NewNop())
	c.SetItems([]models.FigureItem{{Title: "t", Image: `img\plot.png`}})

	assert.Equal(t, "/lattice/img/plot.png", c.View().Image)
	c.ReportImageError(1)
	assert.Equal(t, "/lattice/static/img/plot.png", c.View().Image)
}

func TestTruncateWords(t *testing.T) {
	long := strings.TrimSpace(strings.Repeat("word ", 120))
	got := TruncateWords(long, 100)
	assert.Len(t, strings.Fields(got), 101, "100 kept words plus the ellipsis marker")
	assert.True(t, strings.HasSuffix(got, " …"))

	short := strings.TrimSpace(strings.Repeat("word ", 50))
	assert.Equal(t, short, TruncateWords(short, 100))

	exact := strings.TrimSpace(strings.Repeat("word ", 100))
	assert.Equal(t, exact, TruncateWords(exact, 100))

	assert.Equal(t, "anything goes", TruncateWords("anything goes", 0))
}

func TestViewCaptionFallsBackToExcerpt(t *testing.T) {
	c := NewCarousel("", time.Hour, 100, zap.NewNop())
	c.SetItems([]models.FigureItem{{Title: "t", Image: "img/a.png", Excerpt: "short excerpt"}})

	assert.Equal(t, "short excerpt", c.View().Caption)
}
