package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"lattice-site/models"
)

// Carousel display states.
const (
	CarouselLoading = "loading"
	CarouselReady   = "ready"
	CarouselError   = "error"
)

// PlaceholderImage is rendered once every candidate path for a slide has
// failed.
const PlaceholderImage = "static/img/figure-placeholder.png"

// Carousel cycles a 1-based circular position through a list of figure
// items on a timer and resolves each slide's image through an ordered list
// of candidate paths. All per-slide retry state lives on the instance.
type Carousel struct {
	basePath   string
	interval   time.Duration
	wordBudget int
	log        *zap.Logger

	mu       sync.Mutex
	state    string
	items    []models.FigureItem
	active   int         // 1-based, valid only in ready state
	attempts map[int]int // slide position -> failed candidate count
}

// NewCarousel creates a presenter in the loading state.
func NewCarousel(basePath string, interval time.Duration, wordBudget int, logger *zap.Logger) *Carousel {
	if interval <= 0 {
		interval = 6 * time.Second
	}
	return &Carousel{
		basePath:   strings.Trim(basePath, "/"),
		interval:   interval,
		wordBudget: wordBudget,
		log:        logger,
		state:      CarouselLoading,
		attempts:   make(map[int]int),
	}
}

// SetItems installs the loaded figure list and enters the ready state.
// An empty list is a load failure.
func (c *Carousel) SetItems(items []models.FigureItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(items) == 0 {
		c.state = CarouselError
		return
	}
	c.items = items
	c.active = 1
	c.attempts = make(map[int]int)
	c.state = CarouselReady
}

// Fail moves the presenter to its terminal error display state.
func (c *Carousel) Fail() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = CarouselError
}

// Start runs the periodic advance until the context is canceled.
func (c *Carousel) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Advance()
			}
		}
	}()
}

// Advance moves the active position forward by one, wrapping circularly.
func (c *Carousel) Advance() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != CarouselReady {
		return
	}
	c.active = c.active%len(c.items) + 1
}

// Jump selects a 1-based position directly.
func (c *Carousel) Jump(position int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != CarouselReady {
		return fmt.Errorf("carousel is not ready (state %s)", c.state)
	}
	if position < 1 || position > len(c.items) {
		return fmt.Errorf("position %d out of range 1..%d", position, len(c.items))
	}
	c.active = position
	return nil
}

// ReportImageError records a failed image load for one slide, advancing that
// slide (and only that slide) to its next candidate path. Once the
// candidates are exhausted the slide stays on the placeholder.
func (c *Carousel) ReportImageError(position int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != CarouselReady || position < 1 || position > len(c.items) {
		return
	}
	max := len(c.candidates(c.items[position-1].Image))
	if c.attempts[position] < max {
		c.attempts[position]++
	}
}

// candidates derives the ordered image URL candidates for one slide:
// separators normalized, leading slashes stripped, then progressively
// different base roots. A path already under static/ has a single candidate.
func (c *Carousel) candidates(image string) []string {
	p := strings.TrimLeft(strings.ReplaceAll(image, `\`, "/"), "/")
	if p == "" {
		return nil
	}
	roots := []string{"", "static/"}
	if strings.HasPrefix(p, "static/") {
		roots = []string{""}
	}
	out := make([]string, 0, len(roots))
	for _, root := range roots {
		out = append(out, c.withBase(root+p))
	}
	return out
}

func (c *Carousel) withBase(p string) string {
	if c.basePath == "" {
		return "/" + p
	}
	return "/" + c.basePath + "/" + p
}

// CarouselView is the rendered carousel state served to the page.
type CarouselView struct {
	State      string `json:"state"`
	Active     int    `json:"active,omitempty"`
	Count      int    `json:"count"`
	Title      string `json:"title,omitempty"`
	Link       string `json:"link,omitempty"`
	Image      string `json:"image,omitempty"`
	Caption    string `json:"caption,omitempty"`
	Indicators []int  `json:"indicators,omitempty"`
}

// View renders the current slide: resolved image (honoring that slide's
// failed attempts), truncated caption and the indicator window.
func (c *Carousel) View() CarouselView {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != CarouselReady {
		return CarouselView{State: c.state}
	}

	item := c.items[c.active-1]
	cands := c.candidates(item.Image)
	image := c.withBase(PlaceholderImage)
	if n := c.attempts[c.active]; n < len(cands) {
		image = cands[n]
	}

	caption := item.Caption
	if caption == "" {
		caption = item.Excerpt
	}

	return CarouselView{
		State:      c.state,
		Active:     c.active,
		Count:      len(c.items),
		Title:      item.Title,
		Link:       item.Link,
		Image:      image,
		Caption:    TruncateWords(caption, c.wordBudget),
		Indicators: IndicatorWindow(c.active, len(c.items)),
	}
}

// TruncateWords keeps the first budget words of s, appending an ellipsis
// marker when anything was cut. Non-positive budgets disable truncation.
func TruncateWords(s string, budget int) string {
	if budget <= 0 {
		return s
	}
	words := strings.Fields(s)
	if len(words) <= budget {
		return s
	}
	return strings.Join(words[:budget], " ") + " …"
}

// IndicatorWindow returns the 1-based indicator positions for the pagination
// strip: every position when count ≤ 11, otherwise a circular window of five
// before and five after the active position, wrapping modulo count.
func IndicatorWindow(active, count int) []int {
	if count <= 0 {
		return nil
	}
	if count <= 11 {
		out := make([]int, count)
		for i := range out {
			out[i] = i + 1
		}
		return out
	}
	out := make([]int, 0, 11)
	for off := -5; off <= 5; off++ {
		idx := ((active-1+off)%count + count) % count
		out = append(out, idx+1)
	}
	return out
}
