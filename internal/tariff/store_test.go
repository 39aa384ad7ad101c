package tariff

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/aqacs/internal/domain"
)

const snap = domain.SnapshotID("US-HTS-2025-10-18")

const chapter01CSV = "\ufeffHeading/Subheading,Stat Suffix,Article Description,Unit of Quantity,General Rate of Duty,Special Rate of Duty,Column 2 Rate of Duty,Notes\n" +
	"0101.21.00,10,\"Live horses, purebred breeding males\",No.,Free,,Free,x\n" +
	"0101.29.00,20,Live horses for slaughter,No.,Free,,Free,\n" +
	",,Horses and asses heading text,,,,,\n"

const chapter84CSV = "HTS Number,Indent,Description,Unit of Quantity,General Rate of Duty,Special Rate of Duty,Column 2 Rate of Duty\n" +
	"8471.30.01.00,1,Portable digital automatic data processing machines,No.,Free,\"A,AU,B\",35%\n" +
	"8471.41.01.50,1,Other data processing machines\n"

func writeSnapshot(t *testing.T, files map[string]string) *DirSource {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "us", "hts", string(snap), "csv")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return NewDirSource(root)
}

func loadFixture(t *testing.T) *Store {
	t.Helper()
	src := writeSnapshot(t, map[string]string{
		"ch_84.csv":  chapter84CSV,
		"ch_01.csv":  chapter01CSV,
		"readme.txt": "not a csv",
	})
	store, err := Load(context.Background(), src, snap)
	require.NoError(t, err)
	return store
}

func TestLoad_OrdersByFileThenRow(t *testing.T) {
	store := loadFixture(t)

	assert.Equal(t, snap, store.SnapshotID())
	require.Equal(t, 5, store.Len())
	assert.Equal(t, "0101210010", store.records[0].HTS10)
	assert.Equal(t, "", store.records[2].HTS10)
	assert.Equal(t, "8471300100", store.records[3].HTS10)
	for i, rec := range store.records {
		assert.Equal(t, i, rec.Index)
	}
}

func TestGetByCode(t *testing.T) {
	store := loadFixture(t)

	rec, ok := store.GetByCode("0101.21.00 10")
	require.True(t, ok)
	assert.Equal(t, "0101210010", rec.HTS10)
	assert.Equal(t, 1, rec.Chapter)
	assert.Equal(t, "0101.21", rec.Heading6)
	assert.Equal(t, "10", rec.StatSuffix)
	assert.Equal(t, "Live horses, purebred breeding males", rec.Article)
	assert.Equal(t, "No.", rec.UnitOfQuantity)
	assert.Equal(t, "Free", rec.RateGeneral)
	assert.Equal(t, "", rec.RateSpecial)
	assert.Equal(t, "Free", rec.RateColumn2)

	rec, ok = store.GetByCode("8471300100")
	require.True(t, ok)
	assert.Equal(t, 84, rec.Chapter)
	assert.Equal(t, "A,AU,B", rec.RateSpecial)
	assert.Equal(t, "35%", rec.RateColumn2)

	short, ok := store.GetByCode("8471410150")
	require.True(t, ok)
	assert.Equal(t, "", short.RateGeneral, "short rows are padded")
}

func TestGetByCode_EveryIndexedRecordRoundTrips(t *testing.T) {
	store := loadFixture(t)

	indexed := 0
	for _, rec := range store.records {
		if rec.HTS10 == "" {
			continue
		}
		indexed++
		got, ok := store.GetByCode(rec.HTS10)
		require.True(t, ok, rec.HTS10)
		assert.Same(t, rec, got)
	}
	assert.Equal(t, 4, indexed)
}

func TestGetByCode_Absent(t *testing.T) {
	store := loadFixture(t)

	rec, ok := store.GetByCode("9999999999")
	assert.False(t, ok)
	assert.Nil(t, rec)

	_, ok = store.GetByCode("0101")
	assert.False(t, ok, "partial codes do not match")

	_, ok = store.GetByCode("   ")
	assert.False(t, ok)
}

func TestSearchArticle(t *testing.T) {
	store := loadFixture(t)

	results := store.SearchArticle("live horses", 2)
	require.Len(t, results, 2)
	for _, rec := range results {
		assert.True(t, strings.HasPrefix(rec.HTS10, "0101"), rec.Article)
	}

	again := store.SearchArticle("live horses", 2)
	assert.Equal(t, results, again)

	all := store.SearchArticle("data processing machines", 100)
	assert.Len(t, all, store.Len())
	assert.Equal(t, 84, all[0].Chapter)
}

func TestSearchArticle_Bounds(t *testing.T) {
	empty := NewStore(snap, nil)
	assert.Empty(t, empty.SearchArticle("horses", 5))

	store := loadFixture(t)
	assert.Empty(t, store.SearchArticle("horses", 0))
	assert.Empty(t, store.SearchArticle(" -- ", 5))
}

func TestLoad_MissingSnapshotIsEmpty(t *testing.T) {
	store, err := Load(context.Background(), NewDirSource(t.TempDir()), snap)
	require.NoError(t, err)
	assert.Equal(t, 0, store.Len())
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "headingsubheading", NormalizeHeader("Heading/Subheading"))
	assert.Equal(t, "column2rateofduty", NormalizeHeader(" Column 2 Rate-of_Duty "))
	assert.Equal(t, "htsnumber", NormalizeHeader("\ufeffHTS Number"))
}

func TestReadTable(t *testing.T) {
	table, err := ReadTable("x.csv", strings.NewReader("a,b\n1\n2,3,4\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, table.Header)
	assert.Equal(t, [][]string{{"1", ""}, {"2", "3"}}, table.Rows)

	empty, err := ReadTable("empty.csv", strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, empty.Rows)
}
