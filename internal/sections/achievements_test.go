package sections

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/campusbridge/onboard/internal/models"
)

func TestNormalizeAchievementsDropsDrafts(t *testing.T) {
	kept, fields := NormalizeAchievements("achievements", []Achievement{
		{},
		{Title: "  ", Documents: []Document{{}}},
		{Title: "National Science Olympiad", Description: "Gold medal", Category: "academic", Date: "2024-02-11"},
	})

	require.Empty(t, fields)
	require.Len(t, kept, 1)
	require.Equal(t, "National Science Olympiad", kept[0].Title)
	require.Empty(t, kept[0].Documents)
}

func TestNormalizeAchievementsPartialEntryRequiresAll(t *testing.T) {
	_, fields := NormalizeAchievements("achievements", []Achievement{
		{},
		{Title: "Hackathon winner"},
	})

	require.Equal(t, map[string]string{
		"achievements[1].description": "description is required",
		"achievements[1].category":    "category is required",
	}, fields)
}

func TestNormalizeAchievementsKeepsSubmittedIndex(t *testing.T) {
	_, fields := NormalizeAchievements("achievements", []Achievement{
		{},
		{},
		{Category: "sports"},
		{Title: "A", Description: "B", Category: "C", Date: "11/02/2024"},
	})

	require.Contains(t, fields, "achievements[2].title")
	require.Contains(t, fields, "achievements[2].description")
	require.Equal(t, "date must match the format 2006-01-02", fields["achievements[3].date"])
	require.NotContains(t, fields, "achievements[0].title")
}

func TestNormalizeAchievementsValidatesDocuments(t *testing.T) {
	_, fields := NormalizeAchievements("achievements", []Achievement{
		{Title: "A", Description: "B", Category: "C", Documents: []Document{{Name: "certificate"}}},
	})
	require.Equal(t, "url is required", fields["achievements[0].documents[0].url"])
}

func TestRegistryAchievementsSection(t *testing.T) {
	value, err := newRegistry().Decode(models.KindStudent, "achievements", []byte(`[
		{"title": "", "description": "", "category": ""},
		{"title": "Debate", "description": "Inter-college finalist", "category": "extracurricular"}
	]`))
	require.NoError(t, err)

	var stored []Achievement
	require.NoError(t, json.Unmarshal(value.JSON, &stored))
	require.Len(t, stored, 1)
	require.Equal(t, "Debate", stored[0].Title)

	_, err = newRegistry().Decode(models.KindStudent, "achievements", []byte(`[{"title":"Only a title"}]`))
	fields := requireFields(t, err)
	require.Contains(t, fields, "achievements[0].category")
}
