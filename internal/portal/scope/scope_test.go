package scope

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type ScopeSuite struct {
	suite.Suite
}

func TestScopeSuite(t *testing.T) {
	suite.Run(t, new(ScopeSuite))
}

func (s *ScopeSuite) TestParse() {
	s.Run("central ignores the department argument", func() {
		sc, err := Parse("central", "gender")
		s.Require().NoError(err)
		s.Equal(KindCentral, sc.Kind)
		s.Equal(CentralID, sc.DepartmentID)
	})

	s.Run("department must be configured", func() {
		sc, err := Parse("department", "advocacy")
		s.Require().NoError(err)
		s.Equal(KindDepartment, sc.Kind)
		s.Equal("advocacy", sc.DepartmentID)

		_, err = Parse("department", "finance")
		s.ErrorIs(err, ErrUnknownDepartment)

		_, err = Parse("department", CentralID)
		s.ErrorIs(err, ErrUnknownDepartment)
	})

	s.Run("unknown kind is rejected", func() {
		_, err := Parse("global", "")
		s.ErrorIs(err, ErrUnknownKind)
	})
}

func (s *ScopeSuite) TestIncludes() {
	dept, err := Parse("department", "unfip")
	s.Require().NoError(err)

	s.True(dept.Includes("unfip"))
	s.True(dept.Includes("central"))
	s.False(dept.Includes("partnerships"))

	s.True(Central().Includes("partnerships"))
	s.Equal("Department: UNFIP / Funding", dept.Label())
	s.Equal(CentralName, Central().Label())
}

func (s *ScopeSuite) TestResolve() {
	raw := []byte(`{
		"central": {"PBI_GROUP_ID": "g-central", "WAREHOUSE_DSN": "postgres://central"},
		"unfip":   {"PBI_GROUP_ID": "g-unfip", "DATAHUB_QUERY": "funding"}
	}`)

	s.Run("department layer wins over central", func() {
		sc, _ := Parse("department", "unfip")
		cfg := Resolve(sc, raw)
		s.Equal("g-unfip", cfg[KeyPBIGroupID])
		s.Equal("postgres://central", cfg[KeyWarehouseDSN])
		s.Equal("funding", cfg[KeyDataHubQuery])
	})

	s.Run("central scope ignores department layers", func() {
		cfg := Resolve(Central(), raw)
		s.Equal("g-central", cfg[KeyPBIGroupID])
		s.NotContains(cfg, KeyDataHubQuery)
	})

	s.Run("department without a layer inherits central", func() {
		sc, _ := Parse("department", "gender")
		cfg := Resolve(sc, raw)
		s.Equal(EffectiveConfig{KeyPBIGroupID: "g-central", KeyWarehouseDSN: "postgres://central"}, cfg)
	})

	s.Run("malformed input yields an empty config", func() {
		sc, _ := Parse("department", "unfip")
		s.Empty(Resolve(sc, []byte(`{"central":`)))
		s.Empty(Resolve(sc, nil))
		s.Empty(Resolve(sc, []byte(`[1,2]`)))
	})

	s.Run("non-object layers contribute nothing", func() {
		sc, _ := Parse("department", "unfip")
		cfg := Resolve(sc, []byte(`{"central": "oops", "unfip": {"PBI_DATASET_ID": "d1"}}`))
		s.Equal(EffectiveConfig{KeyPBIDatasetID: "d1"}, cfg)
	})

	s.Run("scalar values are stringified", func() {
		cfg := Resolve(Central(), []byte(`{"central": {"A": 5, "B": true, "C": null, "D": [1]}}`))
		s.Equal(EffectiveConfig{"A": "5", "B": "true"}, cfg)
	})
}

func (s *ScopeSuite) TestLookup() {
	defaults := Defaults{KeyPBIGroupID: "g-default", KeyPBIDatasetID: "d-default"}
	cfg := EffectiveConfig{KeyPBIGroupID: "g-override", KeyPBIDatasetID: ""}

	s.Equal("g-override", cfg.Value(KeyPBIGroupID, defaults))
	s.Equal("d-default", cfg.Value(KeyPBIDatasetID, defaults))
	s.Equal("", cfg.Value(KeyWarehouseDSN, defaults))
	s.Equal("fallback", cfg.Lookup(KeyWarehouseDSN, "fallback"))
}
