// Package nickname hands out throwaway display names for anonymous room members.
package nickname

import (
	"math/rand/v2"
)

var adjectives = []string{
	"배고픈", "졸린", "신난", "수줍은", "용감한", "느긋한", "까다로운", "행복한",
	"엉뚱한", "씩씩한", "조용한", "수다쟁이", "부지런한", "호기심많은", "다정한", "당당한",
}

var animals = []string{
	"고양이", "강아지", "수달", "판다", "펭귄", "너구리", "다람쥐", "여우",
	"코알라", "햄스터", "부엉이", "고래", "토끼", "사자", "알파카", "쿼카",
}

// Random returns an "adjective animal" nickname.
func Random() string {
	return adjectives[rand.IntN(len(adjectives))] + " " + animals[rand.IntN(len(animals))]
}
