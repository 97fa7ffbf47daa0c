// Package templates holds the templ components for the dashboard and error
// pages. Edit the .templ sources and regenerate with `templ generate`.
package templates

import "github.com/JonMunkholm/csvinsight/internal/core"

// PageTitle is shown in the browser tab and the page header.
const PageTitle = "CSV Insight"

// loadingRefreshSeconds is the meta refresh interval while a run is in flight.
const loadingRefreshSeconds = 2

// LayoutParams controls the page shell.
type LayoutParams struct {
	Title string

	// RefreshSeconds adds a meta refresh while an analysis is running.
	RefreshSeconds int
}

// DashboardParams is everything the dashboard needs from one session.
type DashboardParams struct {
	State core.SessionState

	// Ready is true once every capability has loaded.
	Ready bool
}

func (p DashboardParams) loading() bool {
	return p.State.InFlight()
}

func (p DashboardParams) layout() LayoutParams {
	lp := LayoutParams{Title: PageTitle}
	if p.loading() {
		lp.RefreshSeconds = loadingRefreshSeconds
	}
	return lp
}

// AnalyzeDisabled mirrors the analyze preconditions so the control is never
// offered when the request would be rejected.
func (p DashboardParams) AnalyzeDisabled() bool {
	return len(p.State.Files) == 0 || p.loading() || !p.Ready || p.State.Status == core.StatusError
}

// ClearDisabled is true while a run owns the session.
func (p DashboardParams) ClearDisabled() bool {
	return p.loading()
}

// ExportDisabled is true until there are parsed tables to export.
func (p DashboardParams) ExportDisabled() bool {
	return len(p.State.Tables) == 0 || p.loading() || !p.Ready
}

// showNotReady is true while capabilities are still loading.
func (p DashboardParams) showNotReady() bool {
	return !p.Ready && p.State.Status != core.StatusError
}

func errorText(st core.SessionState) string {
	if st.Error == "" {
		return core.MsgUnexpected
	}
	return st.Error
}
