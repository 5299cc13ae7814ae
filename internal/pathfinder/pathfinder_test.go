package pathfinder

import (
	"path/filepath"
	"testing"

	"city-distance/internal/calculator"
	"city-distance/internal/dataset"
	"city-distance/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pt(name string, lat, lon float64) models.Point {
	return models.Point{Name: name, Loc: models.Coordinate{Lat: lat, Lon: lon}}
}

func hop(from, to string, meters float64) models.DistanceRecord {
	return models.DistanceRecord{FromName: from, ToName: to, Distance: meters}
}

func names(p Path) []string {
	out := make([]string, len(p.Nodes))
	for i, n := range p.Nodes {
		out[i] = n.Name
	}
	return out
}

func TestShortestPathAvoidsLongDirectEdge(t *testing.T) {
	g := FromRecords([]models.DistanceRecord{
		hop("A", "C", 100),
		hop("A", "B", 30),
		hop("B", "C", 40),
		hop("C", "D", 5),
	})
	assert.Equal(t, 4, g.Nodes())
	assert.Equal(t, 4, g.Edges())

	p, err := g.Find("A", "C")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, names(p))
	assert.InDelta(t, 70, p.Meters, 1e-9)

	p, err = g.Find("A", "D")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C", "D"}, names(p))
	assert.InDelta(t, 75, p.Meters, 1e-9)
}

func TestShortestPathSameNode(t *testing.T) {
	g := FromRecords([]models.DistanceRecord{hop("A", "B", 1)})
	p, err := g.Find("A", "A")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, names(p))
	assert.Zero(t, p.Meters)
}

func TestShortestPathUnreachable(t *testing.T) {
	g := FromRecords([]models.DistanceRecord{
		hop("A", "B", 1), hop("B", "A", 1),
		hop("C", "D", 1), hop("D", "C", 1),
		hop("E", "F", 1),
	})

	_, err := g.Find("A", "C")
	assert.ErrorIs(t, err, ErrNoPath)

	// edges are directed
	_, err = g.Find("F", "E")
	assert.ErrorIs(t, err, ErrNoPath)

	_, err = g.Find("A", "Nowhere")
	assert.ErrorIs(t, err, ErrUnknownNode)

	_, err = g.ShortestPath(Node{Name: "A"}, Node{Name: "Ghost"})
	assert.ErrorIs(t, err, ErrUnknownNode)
}

func TestShortestPathOverGeneratedTable(t *testing.T) {
	// A-C is about 111 km and falls outside a 60 km threshold, so the route
	// has to go through B.
	points := []models.Point{pt("A", 0, 0), pt("B", 0, 0.5), pt("C", 0, 1), pt("Far", 45, 45)}
	records, err := calculator.GenerateAll(points, 60000)
	require.NoError(t, err)

	g := FromRecords(records)
	assert.Equal(t, 3, g.Nodes(), "isolated points never enter the graph")

	p, err := g.Find("A", "C")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, names(p))
	want := calculator.Distance(points[0].Loc, points[1].Loc) + calculator.Distance(points[1].Loc, points[2].Loc)
	assert.InDelta(t, want, p.Meters, 1e-6)

	_, err = g.Find("A", "Far")
	assert.ErrorIs(t, err, ErrUnknownNode)
}

func TestResolve(t *testing.T) {
	g := FromRecords(calculatorRecords(t))

	n, err := g.Resolve(" B ")
	require.NoError(t, err)
	assert.Equal(t, "B", n.Name)

	n, err = g.Resolve("0.01, 0.98")
	require.NoError(t, err)
	assert.Equal(t, "C", n.Name)
	assert.Equal(t, models.Coordinate{Lat: 0, Lon: 1}, n.Loc)

	for _, q := range []string{"", "nowhere", "91,0", "abc,def"} {
		_, err = g.Resolve(q)
		assert.ErrorIs(t, err, ErrUnknownNode, q)
	}

	_, err = NewGraph().Resolve("0,0")
	assert.ErrorIs(t, err, ErrUnknownNode)
}

func TestResolveDuplicateNames(t *testing.T) {
	g := FromRecords([]models.DistanceRecord{
		{FromName: "Springfield", FromLat: 1, ToName: "X", Distance: 1},
		{FromName: "Springfield", FromLat: 2, ToName: "X", Distance: 1},
	})
	assert.Equal(t, 3, g.Nodes())

	n, err := g.Resolve("Springfield")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, n.Loc.Lat, 0)
}

func calculatorRecords(t *testing.T) []models.DistanceRecord {
	t.Helper()
	records, err := calculator.GenerateAll([]models.Point{pt("A", 0, 0), pt("B", 0, 0.5), pt("C", 0, 1)}, 60000)
	require.NoError(t, err)
	return records
}

func TestLoad(t *testing.T) {
	records := calculatorRecords(t)
	dir := t.TempDir()

	for _, tc := range []struct {
		file   string
		legacy bool
	}{
		{"full.csv", false},
		{"legacy.csv", true},
		{"table.xlsx", false},
	} {
		t.Run(tc.file, func(t *testing.T) {
			path := filepath.Join(dir, tc.file)
			sink, err := dataset.Create(path, dataset.WriteOptions{LegacyHeader: tc.legacy})
			require.NoError(t, err)
			for _, r := range records {
				require.NoError(t, sink.Write(r))
			}
			require.NoError(t, sink.Commit())

			g, err := Load(path, "")
			require.NoError(t, err)
			assert.Equal(t, len(records), g.Edges())

			p, err := g.Find("A", "C")
			require.NoError(t, err)
			assert.Equal(t, []string{"A", "B", "C"}, names(p))
		})
	}

	_, err := Load(filepath.Join(dir, "missing.csv"), "")
	var ioErr *models.IOError
	assert.ErrorAs(t, err, &ioErr)
}
