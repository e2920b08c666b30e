package muepub

import (
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/muepub/muepub/pkg/layout"
	"github.com/muepub/muepub/pkg/renderprep"
)

// EngineDiagnosticKind identifies a render-engine diagnostic event.
type EngineDiagnosticKind int

const (
	DiagReflowTime EngineDiagnosticKind = iota
	DiagCancelled
)

// EngineDiagnostic is emitted by a RenderEngine as it prepares pages.
type EngineDiagnostic struct {
	Kind         EngineDiagnosticKind
	ReflowTimeMs int64
}

// DiagnosticSink receives engine diagnostics. Implementations must be safe
// to call from the preparation goroutine.
type DiagnosticSink interface {
	Emit(EngineDiagnostic)
}

// CancelToken is a cooperative cancellation signal polled at item
// boundaries: before render-prep begins, after each styled item is pushed
// into the layout session, and before the final flush.
type CancelToken struct {
	cancelled atomic.Bool
}

// NewCancelToken returns a token in the not-cancelled state.
func NewCancelToken() *CancelToken { return &CancelToken{} }

// Cancel marks the token cancelled. Safe to call from any goroutine.
func (t *CancelToken) Cancel() { t.cancelled.Store(true) }

// IsCancelled reports whether Cancel has been called.
func (t *CancelToken) IsCancelled() bool { return t.cancelled.Load() }

// RenderEngine holds immutable layout/render-prep configuration and an
// optional diagnostic sink. Each preparation call constructs its own
// mutable layout session, so a RenderEngine's immutable configuration may
// be shared across goroutines preparing different chapters concurrently.
type RenderEngine struct {
	layoutCfg layout.Config
	prepCfg   renderprep.Config

	mu   sync.Mutex
	sink DiagnosticSink
}

// NewRenderEngine builds an engine from layout and render-prep
// configuration.
func NewRenderEngine(layoutCfg layout.Config, prepCfg renderprep.Config) *RenderEngine {
	return &RenderEngine{layoutCfg: layoutCfg, prepCfg: prepCfg}
}

// SetDiagnosticSink installs sink, replacing any previous one. Safe to call
// concurrently with in-flight preparation calls.
func (e *RenderEngine) SetDiagnosticSink(sink DiagnosticSink) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sink = sink
}

func (e *RenderEngine) emit(d EngineDiagnostic) {
	e.mu.Lock()
	sink := e.sink
	e.mu.Unlock()
	if sink != nil {
		sink.Emit(d)
	}
}

var linkStylesheetPattern = regexp.MustCompile(`(?is)<link\b[^>]*\brel\s*=\s*["']?stylesheet["']?[^>]*>`)
var hrefAttrPattern = regexp.MustCompile(`(?is)\bhref\s*=\s*"([^"]*)"|\bhref\s*=\s*'([^']*)'`)

// stylesheetHrefs scans raw XHTML for <link rel="stylesheet" href="..."> as
// they would appear in <head>, which the tokenizer itself skips.
func stylesheetHrefs(xhtml []byte) []string {
	var hrefs []string
	for _, tag := range linkStylesheetPattern.FindAll(xhtml, -1) {
		m := hrefAttrPattern.FindSubmatch(tag)
		if m == nil {
			continue
		}
		href := string(m[1])
		if href == "" {
			href = string(m[2])
		}
		if href != "" {
			hrefs = append(hrefs, href)
		}
	}
	return hrefs
}

// prepareEvents runs the tokenize→cascade→font-resolve pipeline for a
// chapter and returns its styled event stream.
func (e *RenderEngine) prepareEvents(book *Book, index int) ([]renderprep.Event, error) {
	ch, err := book.Chapter(index)
	if err != nil {
		return nil, err
	}
	xhtml, err := ch.RawContent()
	if err != nil {
		return nil, err
	}

	var cssSources []string
	for _, href := range stylesheetHrefs(xhtml) {
		resolved := resolveRelativePath(ch.Href, href)
		if resolved == "" {
			continue
		}
		if data, rerr := book.ReadResource(resolved); rerr == nil {
			cssSources = append(cssSources, string(data))
		}
	}

	sheets, err := renderprep.ParseStylesheets(cssSources, e.prepCfg.StyleLimits)
	if err != nil {
		return nil, errCSS("parse chapter stylesheets", err)
	}

	lib := renderprep.NewFontLibrary(e.prepCfg.FontLimits)
	events, err := renderprep.Prepare(xhtml, sheets, lib, e.prepCfg)
	if err != nil {
		return nil, errParse("render-prep", err)
	}
	return events, nil
}

// PrepareChapter prepares every page of a chapter eagerly.
func (e *RenderEngine) PrepareChapter(book *Book, index int) ([]layout.RenderPage, error) {
	var pages []layout.RenderPage
	err := e.PrepareChapterWith(book, index, func(p layout.RenderPage) error {
		pages = append(pages, p)
		return nil
	})
	return pages, err
}

// PrepareChapterWith prepares a chapter's pages, invoking onPage once per
// page in increasing page-number order.
func (e *RenderEngine) PrepareChapterWith(book *Book, index int, onPage func(layout.RenderPage) error) error {
	return e.prepareWithCancel(book, index, nil, onPage)
}

// PrepareChapterWithCancel is PrepareChapterWith with cooperative
// cancellation support.
func (e *RenderEngine) PrepareChapterWithCancel(book *Book, index int, cancel *CancelToken, onPage func(layout.RenderPage) error) error {
	return e.prepareWithCancel(book, index, cancel, onPage)
}

func (e *RenderEngine) prepareWithCancel(book *Book, index int, cancel *CancelToken, onPage func(layout.RenderPage) error) error {
	start := time.Now()

	if cancel != nil && cancel.IsCancelled() {
		e.emit(EngineDiagnostic{Kind: DiagCancelled})
		return errParse("cancelled", nil)
	}

	events, err := e.prepareEvents(book, index)
	if err != nil {
		return err
	}

	sess := layout.NewSession(e.layoutCfg)
	for _, ev := range events {
		if err := sess.Push(ev); err != nil {
			return errParse("layout push", err)
		}
		if cancel != nil && cancel.IsCancelled() {
			e.emit(EngineDiagnostic{Kind: DiagCancelled})
			return errParse("cancelled", nil)
		}
	}

	if cancel != nil && cancel.IsCancelled() {
		e.emit(EngineDiagnostic{Kind: DiagCancelled})
		return errParse("cancelled", nil)
	}

	pages := sess.Finish(index)
	for _, p := range pages {
		if err := onPage(p); err != nil {
			return err
		}
	}

	e.emit(EngineDiagnostic{Kind: DiagReflowTime, ReflowTimeMs: time.Since(start).Milliseconds()})
	return nil
}

// PrepareChapterPageRange prepares a chapter and returns pages[start:end)
// by chapter-relative page index.
func (e *RenderEngine) PrepareChapterPageRange(book *Book, index, start, end int) ([]layout.RenderPage, error) {
	all, err := e.PrepareChapter(book, index)
	if err != nil {
		return nil, err
	}
	if start < 0 {
		start = 0
	}
	if end > len(all) {
		end = len(all)
	}
	if start >= end {
		return nil, nil
	}
	return all[start:end], nil
}

// RenderPageResult is one item of a PrepareChapterIterStreaming channel.
type RenderPageResult struct {
	Page layout.RenderPage
	Err  error
}

// PrepareChapterIterStreaming prepares a chapter's pages on a worker
// goroutine and delivers them over a capacity-1 channel for backpressure.
// The returned cancel function stops the worker early; the channel is
// closed once preparation finishes, fails, or is cancelled.
func (e *RenderEngine) PrepareChapterIterStreaming(book *Book, index int) (<-chan RenderPageResult, func()) {
	cancel := NewCancelToken()
	out := make(chan RenderPageResult, 1)

	go func() {
		defer close(out)
		err := e.prepareWithCancel(book, index, cancel, func(p layout.RenderPage) error {
			out <- RenderPageResult{Page: p}
			return nil
		})
		if err != nil {
			out <- RenderPageResult{Err: err}
		}
	}()

	return out, cancel.Cancel
}
