package muepub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muepub/muepub/pkg/layout"
	"github.com/muepub/muepub/pkg/renderprep"
)

func newTestEngine() *RenderEngine {
	return NewRenderEngine(layout.DefaultConfig(), renderprep.DefaultConfig())
}

func textOf(pages []layout.RenderPage) []string {
	var texts []string
	for _, p := range pages {
		for _, c := range p.Content {
			if c.Kind == layout.DrawText {
				texts = append(texts, c.Text)
			}
		}
	}
	return texts
}

func TestPrepareChapterProducesPageWithHello(t *testing.T) {
	b := openTestBook(t)
	defer b.Close()
	e := newTestEngine()

	pages, err := e.PrepareChapter(b, 0)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(pages), 1)
	assert.Contains(t, textOf(pages), "Hello")
}

func TestPrepareChapterIsDeterministic(t *testing.T) {
	b := openTestBook(t)
	defer b.Close()
	e := newTestEngine()

	p1, err := e.PrepareChapter(b, 1)
	require.NoError(t, err)
	p2, err := e.PrepareChapter(b, 1)
	require.NoError(t, err)

	require.Equal(t, len(p1), len(p2))
	for i := range p1 {
		assert.Equal(t, textOf(p1[i:i+1]), textOf(p2[i:i+1]))
	}
}

func TestPrepareChapterWithCancelStopsEarly(t *testing.T) {
	b := openTestBook(t)
	defer b.Close()
	e := newTestEngine()

	cancel := NewCancelToken()
	cancel.Cancel()

	seen := 0
	err := e.PrepareChapterWithCancel(b, 1, cancel, func(layout.RenderPage) error {
		seen++
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, 0, seen)
}

func TestPrepareChapterPageRangeWindows(t *testing.T) {
	b := openTestBook(t)
	defer b.Close()
	e := newTestEngine()

	all, err := e.PrepareChapter(b, 1)
	require.NoError(t, err)
	require.NotEmpty(t, all)

	window, err := e.PrepareChapterPageRange(b, 1, 0, 1)
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, all[0].PageNumber, window[0].PageNumber)
}

func TestPrepareChapterIterStreamingDeliversAllPages(t *testing.T) {
	b := openTestBook(t)
	defer b.Close()
	e := newTestEngine()

	expected, err := e.PrepareChapter(b, 1)
	require.NoError(t, err)

	ch, _ := e.PrepareChapterIterStreaming(b, 1)
	var got []layout.RenderPage
	for r := range ch {
		require.NoError(t, r.Err)
		got = append(got, r.Page)
	}
	assert.Equal(t, len(expected), len(got))
}

type recordingSink struct {
	diags []EngineDiagnostic
}

func (s *recordingSink) Emit(d EngineDiagnostic) { s.diags = append(s.diags, d) }

func TestRenderEngineEmitsReflowTimeDiagnostic(t *testing.T) {
	b := openTestBook(t)
	defer b.Close()
	e := newTestEngine()
	sink := &recordingSink{}
	e.SetDiagnosticSink(sink)

	_, err := e.PrepareChapter(b, 0)
	require.NoError(t, err)

	require.NotEmpty(t, sink.diags)
	assert.Equal(t, DiagReflowTime, sink.diags[len(sink.diags)-1].Kind)
}

func TestStylesheetHrefsExtractsLinkTags(t *testing.T) {
	xhtml := []byte(`<html><head>
<link rel="stylesheet" type="text/css" href="../styles/main.css"/>
<link rel="alternate" href="ignored.css"/>
</head><body/></html>`)
	hrefs := stylesheetHrefs(xhtml)
	require.Len(t, hrefs, 1)
	assert.Equal(t, "../styles/main.css", hrefs[0])
}
