package service

import "github.com/KaanK026/Harvia/internal/domain"

var sampleFriends = []domain.Friend{
	{ID: "friend_1", Name: "Alex", Status: "online"},
	{ID: "friend_2", Name: "Sam", Status: "offline"},
	{ID: "friend_3", Name: "Taylor", Status: "sauna"},
}

// Friends lists the friends of the caller. The list is a fixed sample until
// a social graph backs it.
func (s *Service) Friends() []domain.Friend {
	out := make([]domain.Friend, len(sampleFriends))
	copy(out, sampleFriends)
	return out
}
