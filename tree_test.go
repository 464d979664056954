package ndwcs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTree(t *testing.T) {
	ds := skyWaveDataset(t)
	sub, err := ds.Slice(Expr{All(), Index(2)})
	require.NoError(t, err)

	s := NewMemoryStore()
	err = WriteTree(JSONTreeWriter{Store: s}, "/trees//visp.json", sub, map[string]interface{}{"observer": "DKIST"})
	require.NoError(t, err)

	f, err := s.Get("trees/visp.json")
	require.NoError(t, err)
	defer f.Close()
	var tree struct {
		Transform struct {
			PixelAxes int `json:"pixel_axes"`
		} `json:"gwcs"`
		Dataset struct {
			Shape       []int     `json:"shape"`
			Data        []float64 `json:"data"`
			MissingAxes []bool    `json:"missing_axes"`
		} `json:"dataset"`
		References []ExternalReference `json:"references"`
		Observer   string              `json:"observer"`
	}
	require.NoError(t, json.NewDecoder(f).Decode(&tree))

	assert.Equal(t, 2, tree.Transform.PixelAxes)
	assert.Equal(t, []int{2, 4}, tree.Dataset.Shape)
	assert.Equal(t, []float64{8, 9, 10, 11, 20, 21, 22, 23}, tree.Dataset.Data)
	assert.Equal(t, []bool{false, true, false}, tree.Dataset.MissingAxes)
	require.Len(t, tree.References, 2)
	assert.Equal(t, frameLocations(2)[0], tree.References[0].Location)
	assert.Equal(t, ">f4", tree.References[0].Dtype.String())
	assert.Equal(t, "DKIST", tree.Observer)
}

func TestNewTreeReservedKeys(t *testing.T) {
	ds := skyWaveDataset(t)
	for _, k := range []string{TreeKeyTransform, TreeKeyDataset, TreeKeyReferences} {
		_, err := NewTree(ds, map[string]interface{}{k: 1})
		assert.ErrorIs(t, err, ErrSchema, k)
	}

	data, err := NewArray([]float64{1, 2}, 2)
	require.NoError(t, err)
	bare, err := NewDataset(data, nil)
	require.NoError(t, err)
	tree, err := NewTree(bare, nil)
	require.NoError(t, err)
	assert.NotContains(t, tree, TreeKeyReferences)
	raw, err := json.Marshal(tree)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"gwcs":null`)
}
