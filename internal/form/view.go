package form

// Download describes what the view offers the user after a success.
// Exactly one of Location or URL is set.
type Download struct {
	Filename string
	// Location is where the file was saved.
	Location string
	// Size of the saved file in bytes.
	Size int64
	// URL is set when the webhook returned a link that was not fetched.
	URL string
}

// View renders dispatcher state. Implementations must be safe for use from
// a timer goroutine, which hides the results warning.
type View interface {
	SetRemaining(remaining int, low bool)
	ShowLimitReached()
	ShowResultsWarning(max int)
	HideResultsWarning()
	SetFormEnabled(enabled bool)
	ShowLoading(message string)
	ShowDownload(d Download)
	ShowError(message string)
	HideAll()
}

// NopView discards everything.
type NopView struct{}

func (NopView) SetRemaining(int, bool) {}
func (NopView) ShowLimitReached()      {}
func (NopView) ShowResultsWarning(int) {}
func (NopView) HideResultsWarning()    {}
func (NopView) SetFormEnabled(bool)    {}
func (NopView) ShowLoading(string)     {}
func (NopView) ShowDownload(Download)  {}
func (NopView) ShowError(string)       {}
func (NopView) HideAll()               {}
