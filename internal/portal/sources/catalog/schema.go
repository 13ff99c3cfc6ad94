package catalog

import "strings"

// Partial DataHub search response. Every level is a pointer or slice so that
// absent and null nodes decode to nil; accessors are nil-safe.

type searchResponse struct {
	Data *struct {
		Search *struct {
			Total         int            `json:"total"`
			SearchResults []searchResult `json:"searchResults"`
		} `json:"search"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type searchResult struct {
	Entity *entity `json:"entity"`
}

type entity struct {
	URN        *string     `json:"urn"`
	Properties *properties `json:"properties"`
	Domain     *domainRef  `json:"domain"`
	Tags       *tagList    `json:"tags"`
}

type properties struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type domainRef struct {
	Properties *struct {
		Name *string `json:"name"`
	} `json:"properties"`
}

type tagList struct {
	Tags []*tagAssociation `json:"tags"`
}

type tagAssociation struct {
	Tag *struct {
		Properties *struct {
			Name *string `json:"name"`
		} `json:"properties"`
	} `json:"tag"`
}

func (r *searchResponse) results() []searchResult {
	if r == nil || r.Data == nil || r.Data.Search == nil {
		return nil
	}
	return r.Data.Search.SearchResults
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (e *entity) urn() string {
	if e == nil {
		return ""
	}
	return deref(e.URN)
}

func (e *entity) name() string {
	if e == nil || e.Properties == nil {
		return ""
	}
	return deref(e.Properties.Name)
}

func (e *entity) description() string {
	if e == nil || e.Properties == nil {
		return ""
	}
	return deref(e.Properties.Description)
}

func (e *entity) domainName() string {
	if e == nil || e.Domain == nil || e.Domain.Properties == nil {
		return ""
	}
	return deref(e.Domain.Properties.Name)
}

func (e *entity) tagNames() []string {
	if e == nil || e.Tags == nil {
		return []string{}
	}
	names := make([]string, 0, len(e.Tags.Tags))
	for _, t := range e.Tags.Tags {
		if t == nil || t.Tag == nil || t.Tag.Properties == nil {
			continue
		}
		if name := deref(t.Tag.Properties.Name); strings.TrimSpace(name) != "" {
			names = append(names, name)
		}
	}
	return names
}
