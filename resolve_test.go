package docxtemplar

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_AliasChain(t *testing.T) {
	vars := Resolve(Record{
		"prenom":   "Jean",
		"lastName": "Dupont",
		"poste":    nil,
		"position": "Ingénieur",
	})
	assert.Equal(t, "Jean", vars.Get("first_name"))
	assert.Equal(t, "Dupont", vars.Get("last_name"))
	assert.Equal(t, "Ingénieur", vars.Get("poste"))
}

func TestResolve_EmptyValuesSkipped(t *testing.T) {
	// первые три ключа цепочки считаются пустыми
	vars := Resolve(Record{
		"first_name":          "undefined",
		"firstName":           "   ",
		"prenom":              "null",
		"employee_first_name": "Marie",
	})
	assert.Equal(t, "Marie", vars.Get("first_name"))
}

func TestResolve_EveryFieldPresent(t *testing.T) {
	cfg := DefaultConfig()
	vars := Resolve(Record{})
	require.Equal(t, len(cfg.Fields)+len(cfg.Derived), vars.Len())
	for _, id := range cfg.identifiers() {
		v, ok := vars.Lookup(id)
		assert.True(t, ok, id)
		if id != "contract_duration_label" {
			assert.Empty(t, v, id)
		}
	}
}

func TestResolve_FullNameSplit(t *testing.T) {
	vars := Resolve(Record{"full_name": "Jean  Pierre Martin"})
	assert.Equal(t, "Jean", vars.Get("first_name"))
	assert.Equal(t, "Pierre Martin", vars.Get("last_name"))

	// одно слово — в оба поля
	vars = Resolve(Record{"fullName": "Cher"})
	assert.Equal(t, "Cher", vars.Get("first_name"))
	assert.Equal(t, "Cher", vars.Get("last_name"))

	// явные поля важнее полного имени
	vars = Resolve(Record{"first_name": "Anne", "full_name": "Jean Martin"})
	assert.Equal(t, "Anne", vars.Get("first_name"))
	assert.Equal(t, "Martin", vars.Get("last_name"))
}

func TestResolve_Dates(t *testing.T) {
	cases := map[string]string{
		"2024-01-01":           "01-01-2024",
		"2024-01-01T09:30:00Z": "01-01-2024",
		"2024-01-01 09:30":     "01-01-2024",
		"2024-13-45":           "",
		"01/02/2024":           "",
		"2024-01-01X":          "",
		"":                     "",
	}
	for in, want := range cases {
		vars := Resolve(Record{"contract_start": in})
		assert.Equal(t, want, vars.Get("contract_start"), in)
	}
	vars := Resolve(Record{"birth_date": time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC)})
	assert.Equal(t, "17-05-1990", vars.Get("birth_date"))
}

func TestResolve_Continuity(t *testing.T) {
	vars := Resolve(Record{
		"contract_end":    "2024-06-30",
		"amendment_1_end": "2024-12-31",
	})
	assert.Equal(t, "30-06-2024", vars.Get("amendment_1_start"))
	assert.Equal(t, "31-12-2024", vars.Get("amendment_2_start"))

	// явное начало не перезаписывается
	vars = Resolve(Record{
		"contract_end":      "2024-06-30",
		"amendment_1_start": "2024-07-15",
	})
	assert.Equal(t, "15-07-2024", vars.Get("amendment_1_start"))

	// avenant 2 зависит от конца avenant 1, а не от его начала
	vars = Resolve(Record{"contract_end": "2024-06-30"})
	assert.Equal(t, "30-06-2024", vars.Get("amendment_1_start"))
	assert.Equal(t, "", vars.Get("amendment_2_start"))
}

func TestResolve_TrialPeriod(t *testing.T) {
	assert.Equal(t, "2 mois", Resolve(Record{"trial_period_text": "2 mois"}).Get("trial_period"))
	assert.Equal(t, "31-03-2024", Resolve(Record{"trial_end_date": "2024-03-31"}).Get("trial_period"))
	assert.Equal(t, "2 mois", Resolve(Record{
		"periode_essai":  "2 mois",
		"trial_end_date": "2024-03-31",
	}).Get("trial_period"))
}

func TestResolve_Scalars(t *testing.T) {
	assert.Equal(t, "2500", Resolve(Record{"salary": 2500.0}).Get("salary"))
	assert.Equal(t, "2500.5", Resolve(Record{"salary": 2500.5}).Get("salary"))
	assert.Equal(t, "2500.50", Resolve(Record{"salaire": json.Number("2500.50")}).Get("salary"))
	assert.Equal(t, "35", Resolve(Record{"weekly_hours": 35}).Get("working_hours"))
	assert.Equal(t, "true", Resolve(Record{"service": true}).Get("department"))
}

func TestResolve_Derived(t *testing.T) {
	vars := Resolve(Record{"first_name": "Jean", "last_name": "Dupont"})
	assert.Equal(t, "Jean Dupont", vars.Get("employee_full_name"))

	vars = Resolve(Record{"first_name": "Jean"})
	assert.Equal(t, "Jean", vars.Get("employee_full_name"))

	vars = Resolve(Record{"contract_start": "2024-01-01", "contract_end": "2024-06-30"})
	assert.Equal(t, "du 01-01-2024 au 30-06-2024", vars.Get("contract_duration_label"))

	vars = Resolve(Record{"contract_start": "2024-01-01"})
	assert.Equal(t, "à durée indéterminée", vars.Get("contract_duration_label"))
}

func TestResolver_CustomConfig(t *testing.T) {
	cfg := Config{
		PrimaryPart: "content.xml",
		Parts:       []string{"content.xml"},
		TextElement: "text:span",
		Fields: []FieldRule{
			{ID: "a", Keys: []string{"x", "y"}},
			{ID: "start", Kind: KindDate, Keys: []string{"s"}},
			{ID: "end", Kind: KindDate, Keys: []string{"e"}},
		},
		Chains: []ChainRule{{ID: "start", From: "end"}},
		Derived: []DerivedRule{
			{ID: "b", Expr: `a + "!"`},
			{ID: "c", Expr: `b + b`},
			{ID: "d", Expr: `missing_var`},
		},
	}
	r, err := NewResolver(cfg)
	require.NoError(t, err)

	vars := r.Resolve(Record{"y": "hi", "e": "2025-02-28"})
	assert.Equal(t, "hi", vars.Get("a"))
	assert.Equal(t, "hi!", vars.Get("b"))
	assert.Equal(t, "hi!hi!", vars.Get("c"))
	assert.Equal(t, "", vars.Get("d"))
	assert.Equal(t, "28-02-2025", vars.Get("start"))

	// резолвер не зависит от последующих изменений исходной конфигурации
	cfg.Fields[0].Keys[0] = "y"
	assert.Equal(t, "X", r.Resolve(Record{"x": "X", "y": "Y"}).Get("a"))
}

func TestResolver_InvalidDerived(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Derived = append(cfg.Derived, DerivedRule{ID: "broken", Expr: "first_name +"})
	_, err := NewResolver(cfg)
	require.ErrorIs(t, err, ErrInvalidConfig)
}
