// Package pagination turns list query parameters into LIMIT/OFFSET values.
package pagination

const (
	DefaultPage    = 1
	DefaultPerPage = 10
)

// Params is the input of New.
type Params struct {
	Count   int
	Page    int
	PerPage int
}

// Page describes one page of a result set.
type Page struct {
	Take      int
	Skip      int
	TotalPage int
}

// New computes take/skip/totalPage. Non-positive page or perPage fall back to defaults.
func New(p Params) Page {
	page := p.Page
	if page < 1 {
		page = DefaultPage
	}
	perPage := p.PerPage
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	total := 0
	if p.Count > 0 {
		total = (p.Count + perPage - 1) / perPage
	}
	return Page{
		Take:      perPage,
		Skip:      (page - 1) * perPage,
		TotalPage: total,
	}
}
