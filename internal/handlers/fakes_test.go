package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"

	"firebase.google.com/go/v4/messaging"
	"github.com/labstack/echo/v4"
	"github.com/placemark-app/backend/internal/models"
	"github.com/placemark-app/backend/internal/notify"
	"github.com/placemark-app/backend/internal/repositories"
	"github.com/placemark-app/backend/pkg/validators"
)

// In-memory repository fakes. They mirror the documented semantics of the
// Postgres implementations closely enough for handler tests: idempotent
// engagement writes, the relation ledger rules, and id-descending cursor
// pages.

type fakeUserRepository struct {
	users  map[uint]*models.User
	prefs  map[uint]*models.UserPrefs
	nextID uint
}

func newFakeUserRepository() *fakeUserRepository {
	return &fakeUserRepository{users: map[uint]*models.User{}, prefs: map[uint]*models.UserPrefs{}}
}

func (f *fakeUserRepository) CreateUser(firebaseUID, username, firstName, lastName string, phoneNumber *string) (*models.User, error) {
	for _, user := range f.users {
		if user.FirebaseUID == firebaseUID {
			return nil, repositories.ErrUserExists
		}
		if user.UsernameLower == models.NormalizeUsername(username) {
			return nil, repositories.ErrUsernameTaken
		}
	}
	f.nextID++
	user := &models.User{
		ID:            f.nextID,
		FirebaseUID:   firebaseUID,
		Username:      username,
		UsernameLower: models.NormalizeUsername(username),
		FirstName:     firstName,
		LastName:      lastName,
		PhoneNumber:   phoneNumber,
	}
	f.users[user.ID] = user
	f.prefs[user.ID] = &models.UserPrefs{
		UserID:                    user.ID,
		FollowNotifications:       true,
		PostLikedNotifications:    true,
		CommentNotifications:      true,
		CommentLikedNotifications: true,
		SearchableByPhoneNumber:   true,
	}
	return user, nil
}

func (f *fakeUserRepository) GetUserByID(userID uint) (*models.User, error) {
	user, ok := f.users[userID]
	if !ok || user.Deleted {
		return nil, repositories.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepository) GetUserByFirebaseUID(firebaseUID string) (*models.User, error) {
	for _, user := range f.users {
		if user.FirebaseUID == firebaseUID && !user.Deleted {
			return user, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeUserRepository) GetUserByUsername(username string) (*models.User, error) {
	for _, user := range f.users {
		if user.UsernameLower == models.NormalizeUsername(username) && !user.Deleted {
			return user, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeUserRepository) GetAnyUserByUsername(username string) (*models.User, error) {
	for _, user := range f.users {
		if user.UsernameLower == models.NormalizeUsername(username) {
			return user, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeUserRepository) GetUsers(userIDs []uint) (map[uint]models.User, error) {
	result := map[uint]models.User{}
	for _, id := range userIDs {
		if user, ok := f.users[id]; ok && !user.Deleted {
			result[id] = *user
		}
	}
	return result, nil
}

func (f *fakeUserRepository) GetUsersByPhoneNumber(phoneNumbers []string, limit int) ([]uint, error) {
	var ids []uint
	for _, phone := range phoneNumbers {
		for _, user := range f.users {
			if user.Deleted || user.PhoneNumber == nil || *user.PhoneNumber != phone {
				continue
			}
			if prefs, ok := f.prefs[user.ID]; ok && !prefs.SearchableByPhoneNumber {
				continue
			}
			if len(ids) < limit {
				ids = append(ids, user.ID)
			}
		}
	}
	return ids, nil
}

func (f *fakeUserRepository) SearchUsers(keyword string, limit int) ([]uint, error) {
	keyword = strings.ToLower(keyword)
	var ids []uint
	for _, id := range f.sortedIDs() {
		user := f.users[id]
		if user.Deleted {
			continue
		}
		fullName := strings.ToLower(user.FirstName + " " + user.LastName)
		if !strings.HasPrefix(user.UsernameLower, keyword) && !strings.HasPrefix(fullName, keyword) {
			continue
		}
		if len(ids) < limit {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeUserRepository) sortedIDs() []uint {
	ids := make([]uint, 0, len(f.users))
	for id := range f.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (f *fakeUserRepository) UpdateProfile(userID uint, username, firstName, lastName string, profilePictureID *uint) (*models.User, error) {
	for _, user := range f.users {
		if user.ID != userID && user.UsernameLower == models.NormalizeUsername(username) {
			return nil, repositories.ErrUsernameTaken
		}
	}
	user := f.users[userID]
	user.Username = username
	user.UsernameLower = models.NormalizeUsername(username)
	user.FirstName = firstName
	user.LastName = lastName
	user.ProfilePictureID = profilePictureID
	return user, nil
}

func (f *fakeUserRepository) SoftDeleteUser(userID uint) error {
	if user, ok := f.users[userID]; ok {
		user.Deleted = true
	}
	return nil
}

func (f *fakeUserRepository) HardDeleteUser(userID uint) error {
	delete(f.users, userID)
	delete(f.prefs, userID)
	return nil
}

func (f *fakeUserRepository) GetCounts(userID uint) (models.UserCounts, error) {
	return models.UserCounts{}, nil
}

func (f *fakeUserRepository) GetPreferences(userID uint) (*models.UserPrefs, error) {
	if prefs, ok := f.prefs[userID]; ok {
		return prefs, nil
	}
	return &models.UserPrefs{UserID: userID}, nil
}

func (f *fakeUserRepository) UpdatePreferences(userID uint, req models.UpdatePrefsRequest) (*models.UserPrefs, error) {
	prefs := &models.UserPrefs{
		UserID:                    userID,
		FollowNotifications:       req.FollowNotifications,
		PostLikedNotifications:    req.PostLikedNotifications,
		CommentNotifications:      req.CommentNotifications,
		CommentLikedNotifications: req.CommentLikedNotifications,
		SearchableByPhoneNumber:   req.SearchableByPhoneNumber,
	}
	f.prefs[userID] = prefs
	return prefs, nil
}

// Featured tier only; the mutual-follow tier lives in SQL.
func (f *fakeUserRepository) GetSuggestedUsers(userID uint, limit int) ([]uint, error) {
	var ids []uint
	for _, id := range f.sortedIDs() {
		user := f.users[id]
		if user.Deleted || user.ID == userID || !user.IsFeatured {
			continue
		}
		if len(ids) < limit {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type relationEdge struct {
	id       uint
	from, to uint
	relation models.RelationType
}

type fakeRelationRepository struct {
	edges  []relationEdge
	nextID uint
}

func newFakeRelationRepository() *fakeRelationRepository { return &fakeRelationRepository{} }

func (f *fakeRelationRepository) find(from, to uint) *relationEdge {
	for i := range f.edges {
		if f.edges[i].from == from && f.edges[i].to == to {
			return &f.edges[i]
		}
	}
	return nil
}

func (f *fakeRelationRepository) remove(from, to uint, relation models.RelationType) bool {
	for i := range f.edges {
		if f.edges[i].from == from && f.edges[i].to == to && f.edges[i].relation == relation {
			f.edges = append(f.edges[:i], f.edges[i+1:]...)
			return true
		}
	}
	return false
}

func (f *fakeRelationRepository) add(from, to uint, relation models.RelationType) {
	f.nextID++
	f.edges = append(f.edges, relationEdge{id: f.nextID, from: from, to: to, relation: relation})
}

func (f *fakeRelationRepository) FollowUser(fromUserID, toUserID uint) error {
	if edge := f.find(fromUserID, toUserID); edge != nil {
		if edge.relation == models.RelationFollowing {
			return repositories.ErrAlreadyFollowing
		}
		return repositories.ErrCannotFollowBlocked
	}
	f.add(fromUserID, toUserID, models.RelationFollowing)
	return nil
}

func (f *fakeRelationRepository) UnfollowUser(fromUserID, toUserID uint) error {
	if !f.remove(fromUserID, toUserID, models.RelationFollowing) {
		return repositories.ErrNotFollowing
	}
	return nil
}

func (f *fakeRelationRepository) BlockUser(fromUserID, toUserID uint) error {
	if edge := f.find(fromUserID, toUserID); edge != nil {
		if edge.relation == models.RelationBlocked {
			return repositories.ErrAlreadyBlocked
		}
		return repositories.ErrCannotBlockFollowed
	}
	f.remove(toUserID, fromUserID, models.RelationFollowing)
	f.add(fromUserID, toUserID, models.RelationBlocked)
	return nil
}

func (f *fakeRelationRepository) UnblockUser(fromUserID, toUserID uint) error {
	if !f.remove(fromUserID, toUserID, models.RelationBlocked) {
		return repositories.ErrNotBlocked
	}
	return nil
}

func (f *fakeRelationRepository) IsBlocked(blockedByUserID, blockedUserID uint) (bool, error) {
	edge := f.find(blockedByUserID, blockedUserID)
	return edge != nil && edge.relation == models.RelationBlocked, nil
}

func (f *fakeRelationRepository) GetRelation(fromUserID, toUserID uint) (*models.RelationType, error) {
	if edge := f.find(fromUserID, toUserID); edge != nil {
		relation := edge.relation
		return &relation, nil
	}
	return nil, nil
}

func (f *fakeRelationRepository) GetRelations(fromUserID uint, toUserIDs []uint) (map[uint]models.RelationType, error) {
	result := map[uint]models.RelationType{}
	for _, to := range toUserIDs {
		if edge := f.find(fromUserID, to); edge != nil {
			result[to] = edge.relation
		}
	}
	return result, nil
}

func (f *fakeRelationRepository) followPage(match func(relationEdge) bool, pick func(relationEdge) uint, cursor *uint, limit int) ([]uint, *uint, error) {
	var matched []relationEdge
	for _, edge := range f.edges {
		if edge.relation == models.RelationFollowing && match(edge) {
			if cursor != nil && edge.id >= *cursor {
				continue
			}
			matched = append(matched, edge)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].id > matched[j].id })
	if len(matched) > limit {
		matched = matched[:limit]
	}
	ids := make([]uint, 0, len(matched))
	for _, edge := range matched {
		ids = append(ids, pick(edge))
	}
	var next *uint
	if len(matched) == limit && limit > 0 {
		last := matched[len(matched)-1].id
		next = &last
	}
	return ids, next, nil
}

func (f *fakeRelationRepository) GetFollowers(userID uint, cursor *uint, limit int) ([]uint, *uint, error) {
	return f.followPage(
		func(e relationEdge) bool { return e.to == userID },
		func(e relationEdge) uint { return e.from },
		cursor, limit)
}

func (f *fakeRelationRepository) GetFollowing(userID uint, cursor *uint, limit int) ([]uint, *uint, error) {
	return f.followPage(
		func(e relationEdge) bool { return e.from == userID },
		func(e relationEdge) uint { return e.to },
		cursor, limit)
}

func (f *fakeRelationRepository) GetFollowingIDs(userID uint) ([]uint, error) {
	var ids []uint
	for _, edge := range f.edges {
		if edge.from == userID && edge.relation == models.RelationFollowing {
			ids = append(ids, edge.to)
		}
	}
	return ids, nil
}

func (f *fakeRelationRepository) GetFollowerCount(userID uint) (int64, error) {
	var count int64
	for _, edge := range f.edges {
		if edge.to == userID && edge.relation == models.RelationFollowing {
			count++
		}
	}
	return count, nil
}

func (f *fakeRelationRepository) GetFollowingCount(userID uint) (int64, error) {
	var count int64
	for _, edge := range f.edges {
		if edge.from == userID && edge.relation == models.RelationFollowing {
			count++
		}
	}
	return count, nil
}

type placeDataRow struct {
	userID, placeID uint
	data            models.JSONMap
}

type fakePlaceRepository struct {
	places     map[uint]*models.Place
	placeData  []placeDataRow
	saves      []*models.PlaceSave
	nextID     uint
	nextSaveID uint
}

func newFakePlaceRepository() *fakePlaceRepository {
	return &fakePlaceRepository{places: map[uint]*models.Place{}}
}

func (f *fakePlaceRepository) GetPlaceByID(placeID uint) (*models.Place, error) {
	if place, ok := f.places[placeID]; ok {
		return place, nil
	}
	return nil, repositories.ErrNotFound
}

func (f *fakePlaceRepository) GetPlaces(placeIDs []uint) (map[uint]models.Place, error) {
	result := map[uint]models.Place{}
	for _, id := range placeIDs {
		if place, ok := f.places[id]; ok {
			result[id] = *place
		}
	}
	return result, nil
}

func (f *fakePlaceRepository) GetOrCreatePlace(name string, latitude, longitude, searchRadiusMeters float64) (*models.Place, error) {
	for _, place := range f.places {
		if place.Name == name {
			return place, nil
		}
	}
	f.nextID++
	place := &models.Place{ID: f.nextID, Name: name, Latitude: latitude, Longitude: longitude}
	f.places[place.ID] = place
	return place, nil
}

func (f *fakePlaceRepository) SavePlace(userID, placeID uint, note string) (*models.PlaceSave, error) {
	for _, save := range f.saves {
		if save.UserID == userID && save.PlaceID == placeID {
			save.Note = note
			return save, nil
		}
	}
	f.nextSaveID++
	save := &models.PlaceSave{
		ID:      f.nextSaveID,
		UserID:  userID,
		PlaceID: placeID,
		Note:    note,
		Place:   f.places[placeID],
	}
	f.saves = append(f.saves, save)
	return save, nil
}

func (f *fakePlaceRepository) UnsavePlace(userID, placeID uint) error {
	kept := f.saves[:0]
	for _, save := range f.saves {
		if save.UserID != userID || save.PlaceID != placeID {
			kept = append(kept, save)
		}
	}
	f.saves = kept
	return nil
}

func (f *fakePlaceRepository) GetSavedPlaces(userID uint, cursor *uint, limit int) ([]models.PlaceSave, error) {
	var matched []models.PlaceSave
	for _, save := range f.saves {
		if save.UserID != userID {
			continue
		}
		if cursor != nil && save.ID >= *cursor {
			continue
		}
		matched = append(matched, *save)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (f *fakePlaceRepository) MaybeCreatePlaceData(userID, placeID uint, region *models.Region, additionalData models.JSONMap) error {
	for _, row := range f.placeData {
		if row.userID == userID && row.placeID == placeID {
			return nil
		}
	}
	f.placeData = append(f.placeData, placeDataRow{userID: userID, placeID: placeID, data: additionalData})
	return nil
}

func (f *fakePlaceRepository) AggregateCity(placeID uint) (*string, error) {
	votes := map[string]int{}
	for _, row := range f.placeData {
		if row.placeID != placeID || row.data == nil {
			continue
		}
		if city, ok := row.data["city"].(string); ok {
			votes[city]++
		}
	}
	var best *string
	bestCount := 0
	for city, count := range votes {
		if count > bestCount {
			c := city
			best = &c
			bestCount = count
		}
	}
	return best, nil
}

func (f *fakePlaceRepository) UpdateCity(placeID uint, city *string) error {
	if place, ok := f.places[placeID]; ok {
		place.City = city
	}
	return nil
}

type fakePostRepository struct {
	places     *fakePlaceRepository
	posts      map[uint]*models.Post
	likes      map[[2]uint]bool
	saves      []models.PostSave
	reports    map[[2]uint]bool
	nextID     uint
	nextSaveID uint
}

func newFakePostRepository(places *fakePlaceRepository) *fakePostRepository {
	return &fakePostRepository{
		places:  places,
		posts:   map[uint]*models.Post{},
		likes:   map[[2]uint]bool{},
		reports: map[[2]uint]bool{},
	}
}

func (f *fakePostRepository) CreatePost(userID, placeID uint, category, content string, imageID *uint) (*models.Post, error) {
	if !models.IsValidCategory(category) {
		return nil, repositories.ErrInvalidCategory
	}
	for _, post := range f.posts {
		if post.UserID == userID && post.PlaceID == placeID && !post.Deleted {
			return nil, repositories.ErrAlreadyPosted
		}
	}
	f.nextID++
	post := &models.Post{
		ID:       f.nextID,
		UserID:   userID,
		PlaceID:  placeID,
		Category: category,
		Content:  content,
		ImageID:  imageID,
		Place:    f.places.places[placeID],
	}
	f.posts[post.ID] = post
	return post, nil
}

func (f *fakePostRepository) UpdatePost(postID, placeID uint, category, content string, imageID *uint) (*models.Post, error) {
	if !models.IsValidCategory(category) {
		return nil, repositories.ErrInvalidCategory
	}
	post, ok := f.posts[postID]
	if !ok || post.Deleted {
		return nil, repositories.ErrNotFound
	}
	post.PlaceID = placeID
	post.Category = category
	post.Content = content
	post.ImageID = imageID
	post.Place = f.places.places[placeID]
	return post, nil
}

func (f *fakePostRepository) GetPost(postID uint) (*models.Post, error) {
	post, ok := f.posts[postID]
	if !ok || post.Deleted {
		return nil, repositories.ErrNotFound
	}
	return post, nil
}

func (f *fakePostRepository) GetPosts(postIDs []uint) ([]models.Post, error) {
	var result []models.Post
	for _, id := range postIDs {
		if post, ok := f.posts[id]; ok && !post.Deleted {
			result = append(result, *post)
		}
	}
	return result, nil
}

func (f *fakePostRepository) GetPostIDsByUser(userID uint, cursor *uint, limit int) ([]uint, error) {
	var ids []uint
	for _, post := range f.posts {
		if post.UserID == userID && !post.Deleted {
			if cursor != nil && post.ID >= *cursor {
				continue
			}
			ids = append(ids, post.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (f *fakePostRepository) SoftDeletePost(postID uint) error {
	if post, ok := f.posts[postID]; ok {
		post.Deleted = true
	}
	return nil
}

func (f *fakePostRepository) LikePost(userID, postID uint) error {
	f.likes[[2]uint{userID, postID}] = true
	return nil
}

func (f *fakePostRepository) UnlikePost(userID, postID uint) error {
	delete(f.likes, [2]uint{userID, postID})
	return nil
}

func (f *fakePostRepository) SavePost(userID, postID uint) error {
	for _, save := range f.saves {
		if save.UserID == userID && save.PostID == postID {
			return nil
		}
	}
	f.nextSaveID++
	f.saves = append(f.saves, models.PostSave{ID: f.nextSaveID, UserID: userID, PostID: postID})
	return nil
}

func (f *fakePostRepository) UnsavePost(userID, postID uint) error {
	for i, save := range f.saves {
		if save.UserID == userID && save.PostID == postID {
			f.saves = append(f.saves[:i], f.saves[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakePostRepository) GetLikeCount(postID uint) (int64, error) {
	var count int64
	for key := range f.likes {
		if key[1] == postID {
			count++
		}
	}
	return count, nil
}

func (f *fakePostRepository) GetCommentCount(postID uint) (int64, error) {
	return 0, nil
}

func (f *fakePostRepository) GetLikeCounts(postIDs []uint) (map[uint]int64, error) {
	counts := map[uint]int64{}
	for _, id := range postIDs {
		count, _ := f.GetLikeCount(id)
		counts[id] = count
	}
	return counts, nil
}

func (f *fakePostRepository) GetCommentCounts(postIDs []uint) (map[uint]int64, error) {
	return map[uint]int64{}, nil
}

func (f *fakePostRepository) IsPostLiked(postID, userID uint) (bool, error) {
	return f.likes[[2]uint{userID, postID}], nil
}

func (f *fakePostRepository) IsPostSaved(postID, userID uint) (bool, error) {
	for _, save := range f.saves {
		if save.UserID == userID && save.PostID == postID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePostRepository) GetLikedPostIDs(userID uint, postIDs []uint) (map[uint]bool, error) {
	result := map[uint]bool{}
	for _, id := range postIDs {
		if f.likes[[2]uint{userID, id}] {
			result[id] = true
		}
	}
	return result, nil
}

func (f *fakePostRepository) GetSavedPostIDs(userID uint, postIDs []uint) (map[uint]bool, error) {
	result := map[uint]bool{}
	for _, id := range postIDs {
		saved, _ := f.IsPostSaved(id, userID)
		if saved {
			result[id] = true
		}
	}
	return result, nil
}

func (f *fakePostRepository) GetSavedPostsByUser(userID uint, cursor *uint, limit int) ([]models.PostSave, *uint, error) {
	var matched []models.PostSave
	for _, save := range f.saves {
		if save.UserID == userID {
			if cursor != nil && save.ID >= *cursor {
				continue
			}
			matched = append(matched, save)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	if len(matched) > limit {
		matched = matched[:limit]
	}
	var next *uint
	if len(matched) == limit && limit > 0 {
		last := matched[len(matched)-1].ID
		next = &last
	}
	return matched, next, nil
}

func (f *fakePostRepository) ReportPost(postID, reportedByUserID uint, details string) (bool, error) {
	key := [2]uint{postID, reportedByUserID}
	if f.reports[key] {
		return false, nil
	}
	f.reports[key] = true
	return true, nil
}

type fakeCommentRepository struct {
	comments map[uint]*models.Comment
	likes    map[[2]uint]bool
	nextID   uint
}

func newFakeCommentRepository() *fakeCommentRepository {
	return &fakeCommentRepository{comments: map[uint]*models.Comment{}, likes: map[[2]uint]bool{}}
}

func (f *fakeCommentRepository) CreateComment(userID, postID uint, content string) (*models.Comment, error) {
	f.nextID++
	comment := &models.Comment{ID: f.nextID, UserID: userID, PostID: postID, Content: content}
	f.comments[comment.ID] = comment
	return comment, nil
}

func (f *fakeCommentRepository) GetComment(commentID uint) (*models.Comment, error) {
	comment, ok := f.comments[commentID]
	if !ok || comment.Deleted {
		return nil, repositories.ErrNotFound
	}
	return comment, nil
}

func (f *fakeCommentRepository) GetComments(postID uint, cursor *uint, limit int) ([]models.Comment, *uint, error) {
	var matched []models.Comment
	for _, comment := range f.comments {
		if comment.PostID == postID && !comment.Deleted {
			if cursor != nil && comment.ID <= *cursor {
				continue
			}
			matched = append(matched, *comment)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	if len(matched) > limit {
		matched = matched[:limit]
	}
	var next *uint
	if len(matched) == limit && limit > 0 {
		last := matched[len(matched)-1].ID
		next = &last
	}
	return matched, next, nil
}

func (f *fakeCommentRepository) SoftDeleteComment(commentID uint) error {
	if comment, ok := f.comments[commentID]; ok {
		comment.Deleted = true
	}
	return nil
}

func (f *fakeCommentRepository) LikeComment(commentID, userID uint) error {
	f.likes[[2]uint{userID, commentID}] = true
	return nil
}

func (f *fakeCommentRepository) UnlikeComment(commentID, userID uint) error {
	delete(f.likes, [2]uint{userID, commentID})
	return nil
}

func (f *fakeCommentRepository) GetLikeCount(commentID uint) (int64, error) {
	var count int64
	for key := range f.likes {
		if key[1] == commentID {
			count++
		}
	}
	return count, nil
}

func (f *fakeCommentRepository) GetLikedCommentIDs(userID uint, commentIDs []uint) (map[uint]bool, error) {
	result := map[uint]bool{}
	for _, id := range commentIDs {
		if f.likes[[2]uint{userID, id}] {
			result[id] = true
		}
	}
	return result, nil
}

type fakeFeedRepository struct {
	posts     *fakePostRepository
	relations *fakeRelationRepository
	mapRows   []repositories.MapPostRow
	pinIDs    []uint
}

func (f *fakeFeedRepository) GetFeedPostIDs(userID uint, cursor *uint, limit int) ([]uint, error) {
	following, _ := f.relations.GetFollowingIDs(userID)
	authors := map[uint]bool{userID: true}
	for _, id := range following {
		authors[id] = true
	}
	var ids []uint
	for _, post := range f.posts.posts {
		if authors[post.UserID] && !post.Deleted {
			if cursor != nil && post.ID >= *cursor {
				continue
			}
			ids = append(ids, post.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (f *fakeFeedRepository) GetDiscoverPostIDs(userID uint, limit int) ([]uint, error) {
	var ids []uint
	for _, post := range f.posts.posts {
		if post.UserID != userID && !post.Deleted && (post.ImageID != nil || post.Content != "") {
			ids = append(ids, post.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (f *fakeFeedRepository) GetMapPostRows(region models.Region, userFilter repositories.MapUserFilter, categories []string) ([]repositories.MapPostRow, error) {
	return f.mapRows, nil
}

func (f *fakeFeedRepository) GetPostIDsForPin(placeID uint, userFilter repositories.MapUserFilter, categories []string, limit int) ([]uint, error) {
	return f.pinIDs, nil
}

type fakeNotificationFeedRepository struct {
	events []repositories.NotificationEvent
	cursor *uint
}

func (f *fakeNotificationFeedRepository) GetFeedEvents(userID uint, cursor *uint, limit int) ([]repositories.NotificationEvent, *uint, error) {
	return f.events, f.cursor, nil
}

type fakeTokenRepository struct {
	tokens map[uint][]string
}

func newFakeTokenRepository() *fakeTokenRepository {
	return &fakeTokenRepository{tokens: map[uint][]string{}}
}

func (f *fakeTokenRepository) RegisterToken(userID uint, token string) error {
	for _, existing := range f.tokens[userID] {
		if existing == token {
			return nil
		}
	}
	f.tokens[userID] = append(f.tokens[userID], token)
	return nil
}

func (f *fakeTokenRepository) RemoveToken(userID uint, token string) error {
	kept := f.tokens[userID][:0]
	for _, existing := range f.tokens[userID] {
		if existing != token {
			kept = append(kept, existing)
		}
	}
	f.tokens[userID] = kept
	return nil
}

func (f *fakeTokenRepository) GetTokensForUser(userID uint) ([]models.FCMToken, error) {
	var result []models.FCMToken
	for i, token := range f.tokens[userID] {
		result = append(result, models.FCMToken{ID: uint(i + 1), UserID: userID, Token: token})
	}
	return result, nil
}

func (f *fakeTokenRepository) DeleteToken(tokenID uint) error { return nil }

type fakeImageRepository struct {
	images  map[uint]*models.ImageUpload
	deleted []uint
	nextID  uint
}

func newFakeImageRepository() *fakeImageRepository {
	return &fakeImageRepository{images: map[uint]*models.ImageUpload{}}
}

func (f *fakeImageRepository) CreateImage(userID uint) (*models.ImageUpload, error) {
	f.nextID++
	image := &models.ImageUpload{ID: f.nextID, UserID: userID}
	f.images[image.ID] = image
	return image, nil
}

func (f *fakeImageRepository) SetBlob(imageID uint, blobName, url string) error {
	image := f.images[imageID]
	image.BlobName = &blobName
	image.URL = &url
	return nil
}

func (f *fakeImageRepository) GetImage(imageID uint) (*models.ImageUpload, error) {
	if image, ok := f.images[imageID]; ok {
		return image, nil
	}
	return nil, repositories.ErrImageNotFound
}

func (f *fakeImageRepository) DeleteImage(imageID uint) error {
	delete(f.images, imageID)
	f.deleted = append(f.deleted, imageID)
	return nil
}

type fakeObjectStore struct {
	uploads    map[string][]byte
	private    []string
	failUpload bool
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{uploads: map[string][]byte{}}
}

func (f *fakeObjectStore) UploadImage(ctx context.Context, blobName string, data []byte) (string, error) {
	if f.failUpload {
		return "", context.DeadlineExceeded
	}
	f.uploads[blobName] = data
	return "https://storage.example.com/" + blobName, nil
}

func (f *fakeObjectStore) MakeObjectPrivate(ctx context.Context, blobName string) error {
	f.private = append(f.private, blobName)
	return nil
}

func (f *fakeObjectStore) MakeObjectPublic(ctx context.Context, blobName string) error { return nil }

func (f *fakeObjectStore) DeleteObject(ctx context.Context, blobName string) error {
	delete(f.uploads, blobName)
	return nil
}

type nopMessenger struct{}

func (nopMessenger) Send(ctx context.Context, message *messaging.Message) (string, error) {
	return "", nil
}

type fakePhoneLookup struct {
	phones map[string]string
}

func (f *fakePhoneLookup) GetPhoneNumber(ctx context.Context, uid string) (string, error) {
	return f.phones[uid], nil
}

// testEnv wires the fakes together the way the router wires the real
// repositories. The notifier gets isolated empty repositories so its
// goroutines never touch the fakes the test is asserting on.
type testEnv struct {
	e         *echo.Echo
	users     *fakeUserRepository
	relations *fakeRelationRepository
	places    *fakePlaceRepository
	posts     *fakePostRepository
	comments  *fakeCommentRepository
	tokens    *fakeTokenRepository
	images    *fakeImageRepository
	store     *fakeObjectStore
	notifier  *notify.Notifier
}

func newTestEnv() *testEnv {
	e := echo.New()
	e.Validator = validators.NewValidator()
	places := newFakePlaceRepository()
	return &testEnv{
		e:         e,
		users:     newFakeUserRepository(),
		relations: newFakeRelationRepository(),
		places:    places,
		posts:     newFakePostRepository(places),
		comments:  newFakeCommentRepository(),
		tokens:    newFakeTokenRepository(),
		images:    newFakeImageRepository(),
		store:     newFakeObjectStore(),
		notifier:  notify.NewNotifier(nopMessenger{}, newFakeTokenRepository(), newFakeUserRepository()),
	}
}

func (env *testEnv) addUser(username string) *models.User {
	user, err := env.users.CreateUser("uid-"+username, username, "First", "Last", nil)
	if err != nil {
		panic(err)
	}
	return user
}

func (env *testEnv) feedRepo() *fakeFeedRepository {
	return &fakeFeedRepository{posts: env.posts, relations: env.relations}
}

func (env *testEnv) newContext(user *models.User, method, target string, body any) (echo.Context, *httptest.ResponseRecorder) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			panic(err)
		}
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)
	if user != nil {
		c.Set("currentUser", user)
	}
	return c, rec
}

func itoa(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

func httpErrorCode(err error) int {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code
	}
	return 0
}
