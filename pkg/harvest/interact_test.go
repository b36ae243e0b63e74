package harvest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"imgharvest/pkg/browser"
	"imgharvest/pkg/browser/browsertest"
)

func TestMatchesMore(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Load more", true},
		{"  SHOW MORE photos ", true},
		{"Next", true},
		{"加载更多", true},
		{"查看更多内容", true},
		{"Continue reading", true},
		{"Subscribe", false},
		{"", false},
		{"   ", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, matchesMore(tt.text))
		})
	}
}

func TestClickMoreClicksMatchesOnly(t *testing.T) {
	more := &browsertest.Element{Label: "Load more"}
	next := &browsertest.Element{Label: "Next page"}
	other := &browsertest.Element{Label: "Sign in"}
	page := &browsertest.Page{Buttons: []*browsertest.Element{other, more, next}}

	res, err := ClickMore(context.Background(), page, DefaultInteractOptions())
	require.NoError(t, err)

	assert.True(t, res.Any())
	assert.Equal(t, 3, res.Scanned)
	assert.Equal(t, 2, res.Matched)
	assert.Equal(t, 2, res.Clicked)
	assert.Equal(t, 1, more.Clicked)
	assert.Equal(t, 1, next.Clicked)
	assert.Zero(t, other.Clicked)
}

func TestClickMoreToleratesElementFailures(t *testing.T) {
	unreadable := &browsertest.Element{TextErr: context.DeadlineExceeded}
	broken := &browsertest.Element{Label: "More", ClickErr: errors.New("detached")}
	offscreen := &browsertest.Element{Label: "See more", ScrollErr: errors.New("not scrollable")}
	good := &browsertest.Element{Label: "View more"}
	page := &browsertest.Page{Buttons: []*browsertest.Element{unreadable, broken, offscreen, good}}

	res, err := ClickMore(context.Background(), page, DefaultInteractOptions())
	require.NoError(t, err)

	assert.Equal(t, 4, res.Scanned)
	assert.Equal(t, 1, res.Unreadable)
	assert.Equal(t, 3, res.Matched)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 2, res.Clicked, "a failed scroll still allows the click")
	assert.Equal(t, 1, good.Clicked)
}

func TestClickMoreRespectsCandidateLimit(t *testing.T) {
	var buttons []*browsertest.Element
	for i := 0; i < 250; i++ {
		buttons = append(buttons, &browsertest.Element{Label: "More"})
	}
	page := &browsertest.Page{Buttons: buttons}

	res, err := ClickMore(context.Background(), page, DefaultInteractOptions())
	require.NoError(t, err)
	assert.Equal(t, 200, res.Scanned)
	assert.Zero(t, buttons[200].Clicked)
}

func TestClickMoreNothingToClick(t *testing.T) {
	res, err := ClickMore(context.Background(), &browsertest.Page{}, DefaultInteractOptions())
	require.NoError(t, err)
	assert.False(t, res.Any())
}

func TestClickMoreListFailure(t *testing.T) {
	page := &browsertest.Page{ListErr: errors.New("selector engine busy")}
	_, err := ClickMore(context.Background(), page, DefaultInteractOptions())
	assert.Error(t, err)

	closed := &browsertest.Element{Label: "More", ClickErr: browser.ErrClosed}
	page = &browsertest.Page{Buttons: []*browsertest.Element{closed, {Label: "Next"}}}
	res, err := ClickMore(context.Background(), page, DefaultInteractOptions())
	assert.ErrorIs(t, err, browser.ErrClosed)
	assert.Equal(t, 1, res.Scanned, "scan stops once the page is gone")
}
