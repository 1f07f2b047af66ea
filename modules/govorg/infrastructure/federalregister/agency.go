package federalregister

// Agency is the raw agency record returned by the Federal Register API.
type Agency struct {
	ID          *int64 `json:"id"`
	Name        string `json:"name"`
	ShortName   string `json:"short_name"`
	URL         string `json:"url"`
	ParentID    *int64 `json:"parent_id"`
	Description string `json:"description"`
	Slug        string `json:"slug"`
	Logo        string `json:"logo,omitempty"`
}
