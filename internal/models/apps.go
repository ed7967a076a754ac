package models

// PublisherApp is one Apps Database entry: a source app bundle id and the
// publisher/app names shown for it.
type PublisherApp struct {
	BundleID  string `json:"bundle_id"`
	Publisher string `json:"publisher"`
	AppName   string `json:"app_name"`
	Platform  string `json:"platform,omitempty"`
}

// DisplayName renders "Publisher - App", or whichever part is known.
func (p PublisherApp) DisplayName() string {
	switch {
	case p.Publisher != "" && p.AppName != "":
		return p.Publisher + " - " + p.AppName
	case p.AppName != "":
		return p.AppName
	case p.Publisher != "":
		return p.Publisher
	}
	return p.BundleID
}

// AppsIndex is an in-memory snapshot of the Apps Database, loaded once per run.
type AppsIndex map[string]PublisherApp

// Lookup returns the entry for bundleID.
func (ix AppsIndex) Lookup(bundleID string) (PublisherApp, bool) {
	p, ok := ix[bundleID]
	return p, ok
}
