package testutil

import (
	"dataportal/internal/portal/models"
	"dataportal/internal/portal/scope"
)

// DatasetBuilder provides a fluent interface for building catalog entries.
type DatasetBuilder struct {
	ds models.Dataset
}

// NewDatasetBuilder starts from a central, uncertified dataset with no tags.
func NewDatasetBuilder(id string) *DatasetBuilder {
	return &DatasetBuilder{
		ds: models.Dataset{
			ID:          id,
			Name:        id,
			Domain:      "Funding",
			Sensitivity: "Internal",
			Owner:       "Data Office",
			Tables:      []string{},
			Tags:        []string{},
			Department:  scope.CentralID,
		},
	}
}

func (b *DatasetBuilder) WithName(name string) *DatasetBuilder {
	b.ds.Name = name
	return b
}

func (b *DatasetBuilder) WithDomain(domain string) *DatasetBuilder {
	b.ds.Domain = domain
	return b
}

func (b *DatasetBuilder) WithDescription(desc string) *DatasetBuilder {
	b.ds.Description = desc
	return b
}

func (b *DatasetBuilder) WithTags(tags ...string) *DatasetBuilder {
	b.ds.Tags = tags
	return b
}

func (b *DatasetBuilder) ForDepartment(dept string) *DatasetBuilder {
	b.ds.Department = dept
	return b
}

func (b *DatasetBuilder) Build() models.Dataset {
	return b.ds
}
