package restaurant

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeKakao(t *testing.T) (*httptest.Server, *int32) {
	var searchCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/local/search/category.json", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&searchCalls, 1)
		if r.Header.Get("Authorization") != "KakaoAK test-key" {
			http.Error(w, "no key", http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "FD6", r.URL.Query().Get("category_group_code"))
		assert.Equal(t, "127", r.URL.Query().Get("x"))
		assert.Equal(t, "37.5", r.URL.Query().Get("y"))

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("page") {
		case "1":
			w.Write([]byte(`{"meta":{"is_end":false},"documents":[
				{"id":"A","place_name":"Alpha","category_name":"음식점 > 한식 > 국밥","address_name":"Seoul 1","x":"127.001","y":"37.501","distance":"120"}]}`))
		default:
			w.Write([]byte(`{"meta":{"is_end":true},"documents":[
				{"id":"B","place_name":"Bravo","category_name":"음식점 > 일식","address_name":"Seoul 2","x":"127.002","y":"37.502","distance":"340"}]}`))
		}
	})
	mux.HandleFunc("/main/v/A", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"basicInfo":{"mainphotourl":"http://img/a.jpg","feedback":{"scoresum":18,"scorecnt":4},
			"openHour":{"periodList":[{"timeList":[{"timeName":"영업시간","timeSE":"11:00 ~ 21:00","dayOfWeek":"매일"}]}]}},
			"menuInfo":{"menuList":[{"menu":"국밥","price":"9,000"}]}}`))
	})
	mux.HandleFunc("/main/v/missing", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &searchCalls
}

func TestKakaoDiscoverPagesUntilEnd(t *testing.T) {
	srv, calls := newFakeKakao(t)
	p := NewKakaoProvider(srv.URL, srv.URL, "test-key", 100)

	got, err := p.Discover(context.Background(), 37.5, 127.0, 1000)
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
	require.Len(t, got, 2)
	assert.Equal(t, "Alpha", got["A"].Name)
	assert.Equal(t, "국밥", got["A"].Category)
	assert.Equal(t, 37.501, got["A"].Lat)
	assert.Equal(t, 127.001, got["A"].Lng)
	assert.Equal(t, 340, got["B"].Distance)
}

func TestKakaoDiscoverRejectsBadRadius(t *testing.T) {
	p := NewKakaoProvider("http://unused", "http://unused", "k", 1)
	_, err := p.Discover(context.Background(), 37.5, 127.0, 50000)
	require.Error(t, err)
}

func TestKakaoDiscoverUnauthorized(t *testing.T) {
	srv, _ := newFakeKakao(t)
	p := NewKakaoProvider(srv.URL, srv.URL, "wrong", 100)

	_, err := p.Discover(context.Background(), 37.5, 127.0, 1000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestKakaoDetail(t *testing.T) {
	srv, _ := newFakeKakao(t)
	p := NewKakaoProvider(srv.URL, srv.URL, "test-key", 100)

	d, err := p.Detail(context.Background(), "A", "Seoul 1", "Alpha", 37.501, 127.001)
	require.NoError(t, err)
	assert.Equal(t, "A", d.ID)
	assert.Equal(t, "Alpha", d.Name)
	assert.Equal(t, 4.5, d.Rating)
	assert.Equal(t, 4, d.ReviewCount)
	assert.Equal(t, "http://img/a.jpg", d.PhotoURL)
	assert.Equal(t, []string{"영업시간 매일 11:00 ~ 21:00"}, d.OpenHours)
	require.Len(t, d.Menu, 1)
	assert.Equal(t, "9,000", d.Menu[0].Price)

	_, err = p.Detail(context.Background(), "missing", "", "Ghost", 0, 0)
	require.Error(t, err)
}
