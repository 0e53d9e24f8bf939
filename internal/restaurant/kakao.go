// internal/restaurant/kakao.go
package restaurant

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jason-s-yu/menupick/internal/models"
	"golang.org/x/time/rate"
)

const (
	// foodCategory is Kakao's category group code for restaurants.
	foodCategory = "FD6"
	pageSize     = 15
	maxPages     = 3
	maxRadius    = 20000
)

// KakaoProvider talks to the Kakao Local search API for discovery and to the
// Kakao place endpoint for ratings, photos, opening hours and menus.
type KakaoProvider struct {
	client   *http.Client
	baseURL  string
	placeURL string
	restKey  string
	limiter  *rate.Limiter
}

// NewKakaoProvider builds a provider limited to rps requests per second across all goroutines.
func NewKakaoProvider(baseURL, placeURL, restKey string, rps float64) *KakaoProvider {
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &KakaoProvider{
		client:   &http.Client{Timeout: 10 * time.Second},
		baseURL:  strings.TrimRight(baseURL, "/"),
		placeURL: strings.TrimRight(placeURL, "/"),
		restKey:  restKey,
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
	}
}

type categorySearchResponse struct {
	Meta struct {
		IsEnd bool `json:"is_end"`
	} `json:"meta"`
	Documents []struct {
		ID              string `json:"id"`
		PlaceName       string `json:"place_name"`
		CategoryName    string `json:"category_name"`
		Phone           string `json:"phone"`
		AddressName     string `json:"address_name"`
		RoadAddressName string `json:"road_address_name"`
		X               string `json:"x"`
		Y               string `json:"y"`
		PlaceURL        string `json:"place_url"`
		Distance        string `json:"distance"`
	} `json:"documents"`
}

// Discover pages through the category search until Kakao reports the last page.
func (p *KakaoProvider) Discover(ctx context.Context, lat, lng float64, radius int) (map[string]models.Restaurant, error) {
	if radius <= 0 || radius > maxRadius {
		return nil, fmt.Errorf("radius %d out of range (1-%d)", radius, maxRadius)
	}

	out := make(map[string]models.Restaurant)
	for page := 1; page <= maxPages; page++ {
		q := url.Values{}
		q.Set("category_group_code", foodCategory)
		q.Set("x", strconv.FormatFloat(lng, 'f', -1, 64))
		q.Set("y", strconv.FormatFloat(lat, 'f', -1, 64))
		q.Set("radius", strconv.Itoa(radius))
		q.Set("page", strconv.Itoa(page))
		q.Set("size", strconv.Itoa(pageSize))
		q.Set("sort", "distance")

		var resp categorySearchResponse
		if err := p.getJSON(ctx, p.baseURL+"/v2/local/search/category.json?"+q.Encode(), true, &resp); err != nil {
			return nil, fmt.Errorf("category search page %d: %w", page, err)
		}

		for _, d := range resp.Documents {
			x, errX := strconv.ParseFloat(d.X, 64)
			y, errY := strconv.ParseFloat(d.Y, 64)
			if errX != nil || errY != nil {
				return nil, fmt.Errorf("restaurant %s has invalid coordinates %q,%q", d.ID, d.Y, d.X)
			}
			distance, _ := strconv.Atoi(d.Distance)
			out[d.ID] = models.Restaurant{
				ID:          d.ID,
				Name:        d.PlaceName,
				Address:     d.AddressName,
				RoadAddress: d.RoadAddressName,
				Category:    lastCategory(d.CategoryName),
				Phone:       d.Phone,
				URL:         d.PlaceURL,
				Lat:         y,
				Lng:         x,
				Distance:    distance,
			}
		}
		if resp.Meta.IsEnd {
			break
		}
	}
	return out, nil
}

type placeDetailResponse struct {
	BasicInfo struct {
		MainPhotoURL string `json:"mainphotourl"`
		Feedback     struct {
			ScoreSum int `json:"scoresum"`
			ScoreCnt int `json:"scorecnt"`
		} `json:"feedback"`
		OpenHour struct {
			PeriodList []struct {
				TimeList []struct {
					TimeName  string `json:"timeName"`
					TimeSE    string `json:"timeSE"`
					DayOfWeek string `json:"dayOfWeek"`
				} `json:"timeList"`
			} `json:"periodList"`
		} `json:"openHour"`
	} `json:"basicInfo"`
	MenuInfo struct {
		MenuList []struct {
			Menu  string `json:"menu"`
			Price string `json:"price"`
		} `json:"menuList"`
	} `json:"menuInfo"`
}

// Detail fetches the place page for id. name, address and coordinates are echoed
// back so the merged record stays complete even if the place page omits them.
func (p *KakaoProvider) Detail(ctx context.Context, id, address, name string, lat, lng float64) (models.Restaurant, error) {
	var resp placeDetailResponse
	if err := p.getJSON(ctx, p.placeURL+"/main/v/"+url.PathEscape(id), false, &resp); err != nil {
		return models.Restaurant{}, fmt.Errorf("place detail %s (%s): %w", id, name, err)
	}

	r := models.Restaurant{
		ID:       id,
		Name:     name,
		Address:  address,
		Lat:      lat,
		Lng:      lng,
		PhotoURL: resp.BasicInfo.MainPhotoURL,
	}
	if fb := resp.BasicInfo.Feedback; fb.ScoreCnt > 0 {
		r.Rating = float64(fb.ScoreSum) / float64(fb.ScoreCnt)
		r.ReviewCount = fb.ScoreCnt
	}
	for _, period := range resp.BasicInfo.OpenHour.PeriodList {
		for _, t := range period.TimeList {
			r.OpenHours = append(r.OpenHours, strings.TrimSpace(fmt.Sprintf("%s %s %s", t.TimeName, t.DayOfWeek, t.TimeSE)))
		}
	}
	for _, m := range resp.MenuInfo.MenuList {
		r.Menu = append(r.Menu, models.MenuItem{Name: m.Menu, Price: m.Price})
	}
	return r, nil
}

func (p *KakaoProvider) getJSON(ctx context.Context, rawURL string, authorize bool, v interface{}) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if authorize {
		req.Header.Set("Authorization", "KakaoAK "+p.restKey)
	}

	res, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(res.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// lastCategory turns "음식점 > 한식 > 국밥" into "국밥".
func lastCategory(s string) string {
	parts := strings.Split(s, ">")
	return strings.TrimSpace(parts[len(parts)-1])
}
