package domain

// ReportTemplate selects the document layout and default title for a draft.
type ReportTemplate struct {
	Key   string `json:"key"`
	Title string `json:"title"`
}

var Templates = []ReportTemplate{
	{Key: "INSPECTION_REPORT", Title: "Inspection Report"},
	{Key: "VISIT_SUMMARY", Title: "Visit Summary"},
	{Key: "HOME_ORGANIZER_REPORT", Title: "Home Organizer Report"},
	{Key: "QUOTE", Title: "Quote"},
}

// TemplateByKey falls back to the first template for unknown keys.
func TemplateByKey(key string) ReportTemplate {
	for _, tpl := range Templates {
		if tpl.Key == key {
			return tpl
		}
	}
	return Templates[0]
}
