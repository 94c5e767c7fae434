package factory

import (
	"encoding/base64"
	"testing"

	"go-model-inference/internal/config"
	"go-model-inference/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileFor(t *testing.T) {
	for _, kind := range Kinds() {
		t.Run(string(kind), func(t *testing.T) {
			p, err := ProfileFor(kind)
			require.NoError(t, err)
			assert.Equal(t, kind, p.Kind)
			assert.NotEmpty(t, p.Title)
			assert.NotEmpty(t, p.DefaultModelPath)
			assert.NoError(t, p.Defaults.Validate())
		})
	}

	_, err := ProfileFor("retina")
	assert.Error(t, err)
}

func TestProfileFor_Shapes(t *testing.T) {
	alz, _ := ProfileFor(Alzheimers)
	assert.False(t, alz.Tabular())
	assert.Len(t, alz.Defaults.Classes, 4)
	assert.Equal(t, "Non Demented", alz.Defaults.Classes[0])

	tumor, _ := ProfileFor(BrainTumor)
	assert.Equal(t, []string{"Glioma", "Meningioma", "No Tumor", "Pituitary"}, tumor.Defaults.Classes)
	assert.True(t, tumor.TextReport)

	stroke, _ := ProfileFor(Stroke)
	assert.True(t, stroke.Tabular())
	assert.False(t, stroke.LegacyRoute)
	assert.Equal(t, []int64{1, 21}, stroke.Defaults.InputShape)
}

func TestStorageFactory_CreateFetcher(t *testing.T) {
	f := NewStorageFactory()

	fetcher, err := f.CreateFetcher(&config.Config{})
	require.NoError(t, err)
	assert.IsType(t, &storage.HTTPImageFetcher{}, fetcher)

	fetcher, err = f.CreateFetcher(&config.Config{
		AzureStorageAccount: "scans",
		AzureStorageKey:     base64.StdEncoding.EncodeToString([]byte("not-a-real-key")),
	})
	require.NoError(t, err)
	assert.IsType(t, &storage.RoutingFetcher{}, fetcher)

	_, err = f.CreateFetcher(&config.Config{AzureStorageAccount: "scans", AzureStorageKey: "%%%"})
	assert.Error(t, err)
}
