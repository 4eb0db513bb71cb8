package loader

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/drtmdp/core/model"
)

const serviceCSV = `id,o,d,c
1010,1,1,1
1020,1,2,2
2020,2,2,1
`

const riderCSV = `id,o,d,fare
11,1,1,0
22,2,2,0
12,1,2,10
`

func TestReadLinks(t *testing.T) {
	links, err := ReadLinks(strings.NewReader(serviceCSV), ServiceTable)
	require.NoError(t, err)
	assert.Equal(t, []model.Link{
		{ID: 1010, Origin: 1, Destination: 1, Cost: 1},
		{ID: 1020, Origin: 1, Destination: 2, Cost: 2},
		{ID: 2020, Origin: 2, Destination: 2, Cost: 1},
	}, links)

	rider, err := ReadLinks(strings.NewReader(riderCSV), DemandTable)
	require.NoError(t, err)
	assert.Equal(t, 10.0, rider[2].Fare)
	assert.Zero(t, rider[2].Cost)
}

func TestReadDemands(t *testing.T) {
	data := `id,o,d,tb,te,e,beta_time,beta_fare,beta_t,beta_exp
1,11,22,2,4,1.5,-0.1,-0.01,0,0.5

2,11,22,3,6,1,-0.2,-0.02,0.1,0.4,1010,2020
`
	ds, err := ReadDemands(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, ds, 2)
	assert.Equal(t, model.Demand{
		ID: 1, Origin: 11, Destination: 22, ServiceOrigin: 1010, ServiceDestination: 2020,
		BookingTime: 2, Deadline: 4, RouteExponent: 1.5,
		BetaTime: -0.1, BetaFare: -0.01, BetaExperience: 0.5,
	}, ds[0])
	assert.Equal(t, 1010, ds[1].ServiceOrigin)
	assert.Equal(t, 0.1, ds[1].BetaTimeOfDay)
}

func TestReadErrors(t *testing.T) {
	cases := []struct {
		name string
		read func() error
	}{
		{"short link row", func() error {
			_, err := ReadLinks(strings.NewReader("h\n1,2,3\n"), ServiceTable)
			return err
		}},
		{"non numeric", func() error {
			_, err := ReadLinks(strings.NewReader("h\n1,x,3,4\n"), DemandTable)
			return err
		}},
		{"demand columns", func() error {
			_, err := ReadDemands(strings.NewReader("h\n1,2,3,4,5,6,7,8,9,10,11\n"))
			return err
		}},
		{"bad yaml", func() error {
			_, err := ReadYAML(strings.NewReader("service_links: [\n"))
			return err
		}},
		{"unknown yaml field", func() error {
			_, err := ReadYAML(strings.NewReader("service_links: []\nfleet: 2\n"))
			return err
		}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.ErrorIs(t, c.read(), model.ErrMalformedInput)
		})
	}

	_, err := ReadLinks(strings.NewReader("h\n1,2,3\n"), ServiceTable)
	assert.EqualError(t, err, "service link line 2: want 4 columns, got 3")
}

func TestYAMLRoundTrip(t *testing.T) {
	in := &model.Instance{
		Service: []model.Link{{ID: 10, Origin: 1, Destination: 1, Cost: 1}},
		Rider:   []model.Link{{ID: 1, Origin: 1, Destination: 1}},
		Demands: []model.Demand{{ID: 1, Origin: 23, Destination: 45, BookingTime: 1, Deadline: 2}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, in))
	out, err := ReadYAML(&buf)
	require.NoError(t, err)
	assert.Equal(t, in.Service, out.Service)
	assert.Equal(t, 2030, out.Demands[0].ServiceOrigin, "legacy mapping applies without service links")
	assert.Equal(t, 4050, out.Demands[0].ServiceDestination)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	write := func(name, data string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(data), 0o600))
		return p
	}
	src := Source{
		ServiceLinks: write("service.csv", serviceCSV),
		DemandLinks:  write("rider.csv", riderCSV),
		Demands:      write("od.csv", "h\n1,11,22,2,4,1,-0.1,-0.01,0,0.5\n"),
	}
	assert.Equal(t, "csv", src.ResolvedFormat())
	in, err := Load(src)
	require.NoError(t, err)
	assert.Len(t, in.Service, 3)
	assert.Len(t, in.Rider, 3)
	assert.Len(t, in.Demands, 1)

	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, in))
	ySrc := Source{Instance: write("instance.yaml", buf.String())}
	assert.Equal(t, "yaml", ySrc.ResolvedFormat())
	y, err := Load(ySrc)
	require.NoError(t, err)
	assert.Equal(t, in, y)

	_, err = Load(Source{Format: "xml"})
	assert.Error(t, err)
	_, err = Load(Source{Format: "csv", ServiceLinks: "a"})
	assert.Error(t, err)
	_, err = Load(Source{Instance: filepath.Join(dir, "missing.yaml")})
	assert.ErrorIs(t, err, model.ErrMalformedInput)
}
