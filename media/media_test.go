package media

import (
	"net/http"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"

	"github.com/yavuzelcil/rustyflow-iot/core/client"
)

func newTestService() client.Client {
	router := mux.NewRouter()
	MustNewService(&Builder{Router: router})
	return client.NewWithRouter(router)
}

func TestMediaCreateAndGet(t *testing.T) {
	cl := newTestService()

	var created Media
	status, err := cl.RawPost("/v1/media", NewMedia{
		Name:      "front-door.jpg",
		Path:      "/captures/front-door.jpg",
		MimeType:  "image/jpeg",
		SizeBytes: 48213,
	}, &created)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, status)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "front-door.jpg", created.Name)
	assert.False(t, created.CreatedAt.IsZero())

	var fetched Media
	status, err = cl.RawGet("/v1/media/"+created.ID.String(), &fetched)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, created.Name, fetched.Name)
}

func TestMediaList(t *testing.T) {
	cl := newTestService()

	var items []Media
	_, err := cl.RawGet("/v1/media", &items)
	assert.NoError(t, err)
	assert.Len(t, items, 0)

	_, err = cl.RawPost("/v1/media", NewMedia{Name: "a.png"}, nil)
	assert.NoError(t, err)
	_, err = cl.RawPost("/v1/media", NewMedia{Name: "b.png"}, nil)
	assert.NoError(t, err)

	_, err = cl.RawGet("/v1/media", &items)
	assert.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestMediaPartialUpdate(t *testing.T) {
	cl := newTestService()

	var created Media
	_, err := cl.RawPost("/v1/media", NewMedia{
		Name:      "clip.mp4",
		Path:      "/captures/clip.mp4",
		MimeType:  "video/mp4",
		SizeBytes: 1024,
	}, &created)
	assert.NoError(t, err)

	newName := "clip-renamed.mp4"
	var updated Media
	status, err := cl.RawPut("/v1/media/"+created.ID.String(), UpdateMedia{Name: &newName}, &updated)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, newName, updated.Name)
	// unset fields keep their value
	assert.Equal(t, created.Path, updated.Path)
	assert.Equal(t, created.MimeType, updated.MimeType)
	assert.Equal(t, created.SizeBytes, updated.SizeBytes)
}

func TestMediaConcurrentPartialUpdates(t *testing.T) {
	cl := newTestService()

	var created Media
	_, err := cl.RawPost("/v1/media", NewMedia{
		Name:      "clip.mp4",
		Path:      "/captures/clip.mp4",
		MimeType:  "video/mp4",
		SizeBytes: 1024,
	}, &created)
	assert.NoError(t, err)
	path := "/v1/media/" + created.ID.String()

	// updates of disjoint fields must both survive
	newName := "clip-renamed.mp4"
	newSize := int64(2048)
	for i := 0; i < 20; i++ {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := cl.RawPut(path, UpdateMedia{Name: &newName}, nil)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := cl.RawPut(path, UpdateMedia{SizeBytes: &newSize}, nil)
			assert.NoError(t, err)
		}()
		wg.Wait()

		var item Media
		_, err = cl.RawGet(path, &item)
		assert.NoError(t, err)
		assert.Equal(t, newName, item.Name)
		assert.Equal(t, newSize, item.SizeBytes)
		assert.Equal(t, created.Path, item.Path)
	}
}

func TestMediaDelete(t *testing.T) {
	cl := newTestService()

	var created Media
	_, err := cl.RawPost("/v1/media", NewMedia{Name: "gone.jpg"}, &created)
	assert.NoError(t, err)

	status, err := cl.RawDelete("/v1/media/" + created.ID.String())
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, status)

	status, err = cl.RawGet("/v1/media/"+created.ID.String(), nil)
	assert.Error(t, err)
	assert.Equal(t, http.StatusNotFound, status)

	status, err = cl.RawDelete("/v1/media/" + created.ID.String())
	assert.Error(t, err)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestMediaInvalidID(t *testing.T) {
	cl := newTestService()

	status, err := cl.RawGet("/v1/media/not-a-uuid", nil)
	assert.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, status)
}
