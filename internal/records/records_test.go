package records

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRaw() Raw {
	return Raw{
		SourceType: SourceJobs,
		SourceID:   "12345",
		Title:      "Data Engineer",
		Company:    "Acme",
		Author:     "",
		Summary:    "Build pipelines",
		Content:    "Build pipelines with Go and SQL",
		Seniority:  "Mid",
		ApplyType:  "Easy Apply",
		URL:        "https://www.linkedin.com/jobs/view/12345/",
		ScrapedAt:  "2024-05-01T10:00:00Z",
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	a := Normalize(sampleRaw(), "data engineer", "jobs")
	b := Normalize(sampleRaw(), "data engineer", "jobs")

	assert.Equal(t, a.DedupeKey, b.DedupeKey)
	assert.Equal(t, a, b)
}

func TestNormalize_TrimsAndDropsBlanks(t *testing.T) {
	raw := sampleRaw()
	raw.Title = "  Data Engineer  "
	raw.Author = "   "

	n := Normalize(raw, " data engineer ", "jobs")

	require.NotNil(t, n.Title)
	assert.Equal(t, "Data Engineer", *n.Title)
	assert.Nil(t, n.Author)
	assert.Equal(t, "data engineer", n.Keyword)
	assert.Equal(t, "jobs", n.SearchMode)
}

func TestNormalize_WhitespaceVariantsCollide(t *testing.T) {
	a := Normalize(sampleRaw(), "q", "jobs")

	raw := sampleRaw()
	raw.Title = "  " + raw.Title + " "
	raw.Company = raw.Company + "\n"
	b := Normalize(raw, "q", "jobs")

	assert.Equal(t, a.DedupeKey, b.DedupeKey)
}

func TestDedupeKey_SensitiveToEveryTupleField(t *testing.T) {
	base := Normalize(sampleRaw(), "q", "jobs").DedupeKey

	mutations := map[string]func(*Raw){
		"source_type": func(r *Raw) { r.SourceType = SourceFeed },
		"source_id":   func(r *Raw) { r.SourceID = "99999" },
		"url":         func(r *Raw) { r.URL = "https://www.linkedin.com/jobs/view/99999/" },
		"title":       func(r *Raw) { r.Title = "B" },
		"company":     func(r *Raw) { r.Company = "Other" },
		"author":      func(r *Raw) { r.Author = "Someone" },
		"content":     func(r *Raw) { r.Content = "different content" },
	}

	for field, mutate := range mutations {
		raw := sampleRaw()
		mutate(&raw)
		key := Normalize(raw, "q", "jobs").DedupeKey
		assert.NotEqual(t, base, key, "changing %s must change the key", field)
	}
}

func TestDedupeKey_IgnoresFieldsOutsideTuple(t *testing.T) {
	base := Normalize(sampleRaw(), "q", "jobs").DedupeKey

	raw := sampleRaw()
	raw.Summary = "another summary"
	raw.Seniority = "Senior"
	raw.ApplyType = "External Apply"
	raw.ScrapedAt = "2024-06-01T10:00:00Z"

	assert.Equal(t, base, Normalize(raw, "other keyword", "mixed").DedupeKey)
}

func TestDedupeKey_ContentTruncatedAt180(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'x'
	}

	a := sampleRaw()
	a.Content = string(long)
	b := sampleRaw()
	b.Content = string(long[:180]) + "completely different tail"

	assert.Equal(t,
		Normalize(a, "q", "jobs").DedupeKey,
		Normalize(b, "q", "jobs").DedupeKey,
	)

	c := sampleRaw()
	c.Content = "y" + string(long[:179])
	assert.NotEqual(t,
		Normalize(a, "q", "jobs").DedupeKey,
		Normalize(c, "q", "jobs").DedupeKey,
	)
}

func TestDedupeKey_ContentTruncatedByCharacters(t *testing.T) {
	// 100 accented characters span 200 bytes; a divergence at character
	// 100 sits well inside the 180-character window and must produce
	// distinct keys.
	prefix := strings.Repeat("é", 100)

	a := sampleRaw()
	a.Content = prefix + "descripción uno"
	b := sampleRaw()
	b.Content = prefix + "descripción dos"

	assert.NotEqual(t,
		Normalize(a, "q", "jobs").DedupeKey,
		Normalize(b, "q", "jobs").DedupeKey,
	)

	// Divergence past 180 characters stays outside the key.
	shared := strings.Repeat("ñ", 180)
	c := sampleRaw()
	c.Content = shared + "cola una"
	d := sampleRaw()
	d.Content = shared + "cola otra"

	assert.Equal(t,
		Normalize(c, "q", "jobs").DedupeKey,
		Normalize(d, "q", "jobs").DedupeKey,
	)
}

func TestNormalize_DefaultsScrapedAt(t *testing.T) {
	raw := sampleRaw()
	raw.ScrapedAt = ""

	n := Normalize(raw, "q", "jobs")
	assert.NotEmpty(t, n.ScrapedAt)
}

func TestDeref(t *testing.T) {
	v := "x"
	assert.Equal(t, "x", Deref(&v))
	assert.Equal(t, "", Deref(nil))
}
