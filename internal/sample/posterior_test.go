package sample

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega"
)

func writeTemp(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadPosteriorBareArray(t *testing.T) {
	g := NewWithT(t)

	path := writeTemp(t, "post.json", `[1.25, 1.33, 1.41]`)
	samples, err := LoadPosterior(path)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(samples).To(Equal([]float64{1.25, 1.33, 1.41}))
}

func TestLoadPosteriorSamplesKey(t *testing.T) {
	g := NewWithT(t)

	path := writeTemp(t, "post.json", `{"samples": [1.2, 1.5], "meta": "gw170817"}`)
	samples, err := LoadPosterior(path)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(samples).To(Equal([]float64{1.2, 1.5}))
}

func TestLoadPosteriorErrors(t *testing.T) {
	g := NewWithT(t)

	_, err := LoadPosterior(writeTemp(t, "a.json", `{"other": 1}`))
	g.Expect(err).To(HaveOccurred())

	_, err = LoadPosterior(writeTemp(t, "b.json", `[]`))
	g.Expect(err).To(HaveOccurred())

	_, err = LoadPosterior(writeTemp(t, "c.json", `[1.3, -0.5]`))
	g.Expect(err).To(MatchError(ContainSubstring("non-positive")))

	_, err = LoadPosterior(filepath.Join(t.TempDir(), "missing.json"))
	g.Expect(err).To(HaveOccurred())
}
