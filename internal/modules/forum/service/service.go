package forum

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"greenhouse.org/growersplatform/internal/entity"
	attachmentDto "greenhouse.org/growersplatform/internal/modules/attachment/dto"
	forumDto "greenhouse.org/growersplatform/internal/modules/forum/dto"
	"greenhouse.org/growersplatform/internal/modules/forum/repository"
	"greenhouse.org/growersplatform/pkg/apperror"
	commonDto "greenhouse.org/growersplatform/pkg/dto"
	"greenhouse.org/growersplatform/pkg/metrics"
	"greenhouse.org/growersplatform/pkg/sanitize"
)

const defaultPageSize = 20

type ForumService interface {
	CreatePost(ctx context.Context, userID uuid.UUID, input forumDto.CreatePostInput) (*forumDto.PostResponse, error)
	ListPosts(ctx context.Context, viewer *uuid.UUID, query forumDto.ListPostsQuery) (*commonDto.Paginated[forumDto.PostResponse], error)
	GetPost(ctx context.Context, viewer *uuid.UUID, postID uuid.UUID) (*forumDto.PostDetailResponse, error)
	UpdatePost(ctx context.Context, userID, postID uuid.UUID, input forumDto.UpdatePostInput) (*forumDto.PostResponse, error)
	DeletePost(ctx context.Context, userID, postID uuid.UUID) error

	CreateComment(ctx context.Context, userID, postID uuid.UUID, input forumDto.CreateCommentInput) (*forumDto.CommentResponse, error)
	UpdateComment(ctx context.Context, userID, commentID uuid.UUID, input forumDto.UpdateCommentInput) (*forumDto.CommentResponse, error)
	DeleteComment(ctx context.Context, userID, commentID uuid.UUID) error

	// Vote records value (+1 or -1) and returns the aggregate read by a separate statement;
	// a concurrent vote may land between the two.
	Vote(ctx context.Context, userID uuid.UUID, entityType entity.VoteEntity, entityID uuid.UUID, value int) (*forumDto.VoteResponse, error)
	RemoveVote(ctx context.Context, userID uuid.UUID, entityType entity.VoteEntity, entityID uuid.UUID) (*forumDto.VoteResponse, error)

	ToggleFavorite(ctx context.Context, userID, postID uuid.UUID) (*forumDto.FavoriteResponse, error)
	ListFavorites(ctx context.Context, userID uuid.UUID, page commonDto.PageQuery) (*commonDto.Paginated[forumDto.PostResponse], error)
}

type forumService struct {
	repo repository.ForumRepository
	now  func() time.Time
}

func NewForumService(repo repository.ForumRepository) ForumService {
	return &forumService{repo: repo, now: time.Now}
}

func (s *forumService) CreatePost(ctx context.Context, userID uuid.UUID, input forumDto.CreatePostInput) (*forumDto.PostResponse, error) {
	title, content, err := cleanPost(input.Title, input.Content)
	if err != nil {
		return nil, err
	}

	post := &entity.ForumPost{
		UserID:   userID,
		Title:    title,
		Content:  content,
		Category: normalizeCategory(input.Category),
	}
	if err := s.repo.CreatePost(ctx, post, uniqueIDs(input.AttachmentIDs)); err != nil {
		return nil, err
	}

	return s.postResponse(ctx, &userID, post.ID)
}

func (s *forumService) ListPosts(ctx context.Context, viewer *uuid.UUID, query forumDto.ListPostsQuery) (*commonDto.Paginated[forumDto.PostResponse], error) {
	page, limit := query.Normalize(defaultPageSize)
	filter := repository.PostFilter{
		Category: normalizeCategory(query.Category),
		Q:        query.Q,
		TopFirst: query.Sort == "top",
	}

	posts, total, err := s.repo.ListPosts(ctx, filter, query.Offset(defaultPageSize), limit)
	if err != nil {
		return nil, err
	}
	data, err := s.postResponses(ctx, viewer, posts)
	if err != nil {
		return nil, err
	}
	return &commonDto.Paginated[forumDto.PostResponse]{Data: data, Meta: commonDto.NewPaginationMeta(page, limit, total)}, nil
}

func (s *forumService) GetPost(ctx context.Context, viewer *uuid.UUID, postID uuid.UUID) (*forumDto.PostDetailResponse, error) {
	post, err := s.postResponse(ctx, viewer, postID)
	if err != nil {
		return nil, err
	}

	comments, err := s.repo.ListComments(ctx, postID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(comments))
	for i, c := range comments {
		ids[i] = c.ID
	}
	scores, err := s.repo.Scores(ctx, entity.VoteComment, ids)
	if err != nil {
		return nil, err
	}
	votes := map[uuid.UUID]int{}
	if viewer != nil {
		if votes, err = s.repo.UserVotes(ctx, *viewer, entity.VoteComment, ids); err != nil {
			return nil, err
		}
	}

	nodes := make([]*forumDto.CommentResponse, len(comments))
	for i := range comments {
		nodes[i] = toCommentResponse(&comments[i], scores[comments[i].ID], votes[comments[i].ID])
	}
	return &forumDto.PostDetailResponse{PostResponse: *post, Comments: buildTree(nodes)}, nil
}

func (s *forumService) UpdatePost(ctx context.Context, userID, postID uuid.UUID, input forumDto.UpdatePostInput) (*forumDto.PostResponse, error) {
	post, err := s.repo.FindPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := checkEditable(post.UserID, userID, post.IsDeleted(), "post"); err != nil {
		return nil, err
	}

	title, content := post.Title, post.Content
	if input.Title != nil {
		title = *input.Title
	}
	if input.Content != nil {
		content = *input.Content
	}
	if post.Title, post.Content, err = cleanPost(title, content); err != nil {
		return nil, err
	}
	if input.Category != nil {
		post.Category = normalizeCategory(*input.Category)
	}
	now := s.now()
	post.EditedAt = &now

	if err := s.repo.UpdatePost(ctx, post, uniqueIDs(input.AttachmentIDs)); err != nil {
		return nil, err
	}

	return s.postResponse(ctx, &userID, post.ID)
}

func (s *forumService) DeletePost(ctx context.Context, userID, postID uuid.UUID) error {
	post, err := s.repo.FindPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.UserID != userID {
		return fmt.Errorf("only the author may delete this post: %w", apperror.ErrForbidden)
	}
	if post.IsDeleted() {
		return nil
	}
	return s.repo.SoftDeletePost(ctx, postID)
}

func (s *forumService) CreateComment(ctx context.Context, userID, postID uuid.UUID, input forumDto.CreateCommentInput) (*forumDto.CommentResponse, error) {
	post, err := s.repo.FindPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.IsDeleted() {
		return nil, fmt.Errorf("cannot comment on a deleted post: %w", apperror.ErrInvalidInput)
	}

	content, err := cleanContent(input.Content)
	if err != nil {
		return nil, err
	}

	comment := &entity.ForumComment{PostID: postID, UserID: userID, Content: content}
	if input.ParentID != nil && *input.ParentID != "" {
		parentID, err := uuid.Parse(*input.ParentID)
		if err != nil {
			return nil, fmt.Errorf("invalid parent id: %w", apperror.ErrInvalidInput)
		}
		parent, err := s.repo.FindComment(ctx, parentID)
		if err != nil {
			return nil, err
		}
		if parent.PostID != postID {
			return nil, fmt.Errorf("parent comment belongs to another post: %w", apperror.ErrInvalidInput)
		}
		comment.ParentID = &parentID
	}

	if err := s.repo.CreateComment(ctx, comment); err != nil {
		return nil, err
	}
	created, err := s.repo.FindComment(ctx, comment.ID)
	if err != nil {
		return nil, err
	}
	return toCommentResponse(created, 0, 0), nil
}

func (s *forumService) UpdateComment(ctx context.Context, userID, commentID uuid.UUID, input forumDto.UpdateCommentInput) (*forumDto.CommentResponse, error) {
	comment, err := s.repo.FindComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if err := checkEditable(comment.UserID, userID, comment.IsDeleted(), "comment"); err != nil {
		return nil, err
	}

	if comment.Content, err = cleanContent(input.Content); err != nil {
		return nil, err
	}
	now := s.now()
	comment.EditedAt = &now
	if err := s.repo.UpdateComment(ctx, comment); err != nil {
		return nil, err
	}

	score, err := s.repo.Score(ctx, entity.VoteComment, commentID)
	if err != nil {
		return nil, err
	}
	votes, err := s.repo.UserVotes(ctx, userID, entity.VoteComment, []uuid.UUID{commentID})
	if err != nil {
		return nil, err
	}
	return toCommentResponse(comment, score, votes[commentID]), nil
}

func (s *forumService) DeleteComment(ctx context.Context, userID, commentID uuid.UUID) error {
	comment, err := s.repo.FindComment(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.UserID != userID {
		return fmt.Errorf("only the author may delete this comment: %w", apperror.ErrForbidden)
	}
	if comment.IsDeleted() {
		return nil
	}
	return s.repo.SoftDeleteComment(ctx, commentID)
}

func (s *forumService) Vote(ctx context.Context, userID uuid.UUID, entityType entity.VoteEntity, entityID uuid.UUID, value int) (*forumDto.VoteResponse, error) {
	if value != 1 && value != -1 {
		return nil, fmt.Errorf("vote value must be 1 or -1: %w", apperror.ErrInvalidInput)
	}
	deleted, err := s.targetDeleted(ctx, entityType, entityID)
	if err != nil {
		return nil, err
	}
	if deleted {
		return nil, fmt.Errorf("cannot vote on deleted content: %w", apperror.ErrInvalidInput)
	}

	if err := s.repo.UpsertVote(ctx, &entity.Vote{UserID: userID, EntityType: entityType, EntityID: entityID, Value: value}); err != nil {
		return nil, err
	}
	metrics.ForumVotes.WithLabelValues(string(entityType)).Inc()

	score, err := s.repo.Score(ctx, entityType, entityID)
	if err != nil {
		return nil, err
	}
	return &forumDto.VoteResponse{EntityType: string(entityType), EntityID: entityID, Score: score, MyVote: value}, nil
}

func (s *forumService) RemoveVote(ctx context.Context, userID uuid.UUID, entityType entity.VoteEntity, entityID uuid.UUID) (*forumDto.VoteResponse, error) {
	if _, err := s.targetDeleted(ctx, entityType, entityID); err != nil {
		return nil, err
	}
	if err := s.repo.DeleteVote(ctx, userID, entityType, entityID); err != nil {
		return nil, err
	}
	score, err := s.repo.Score(ctx, entityType, entityID)
	if err != nil {
		return nil, err
	}
	return &forumDto.VoteResponse{EntityType: string(entityType), EntityID: entityID, Score: score}, nil
}

func (s *forumService) ToggleFavorite(ctx context.Context, userID, postID uuid.UUID) (*forumDto.FavoriteResponse, error) {
	if _, err := s.repo.FindPost(ctx, postID); err != nil {
		return nil, err
	}
	favorited, err := s.repo.ToggleFavorite(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	return &forumDto.FavoriteResponse{PostID: postID, Favorited: favorited}, nil
}

func (s *forumService) ListFavorites(ctx context.Context, userID uuid.UUID, query commonDto.PageQuery) (*commonDto.Paginated[forumDto.PostResponse], error) {
	page, limit := query.Normalize(defaultPageSize)
	posts, total, err := s.repo.ListFavorites(ctx, userID, query.Offset(defaultPageSize), limit)
	if err != nil {
		return nil, err
	}
	data, err := s.postResponses(ctx, &userID, posts)
	if err != nil {
		return nil, err
	}
	return &commonDto.Paginated[forumDto.PostResponse]{Data: data, Meta: commonDto.NewPaginationMeta(page, limit, total)}, nil
}

func (s *forumService) targetDeleted(ctx context.Context, entityType entity.VoteEntity, entityID uuid.UUID) (bool, error) {
	switch entityType {
	case entity.VotePost:
		post, err := s.repo.FindPost(ctx, entityID)
		if err != nil {
			return false, err
		}
		return post.IsDeleted(), nil
	case entity.VoteComment:
		comment, err := s.repo.FindComment(ctx, entityID)
		if err != nil {
			return false, err
		}
		return comment.IsDeleted(), nil
	}
	return false, fmt.Errorf("unknown vote target %q: %w", entityType, apperror.ErrInvalidInput)
}

func (s *forumService) postResponse(ctx context.Context, viewer *uuid.UUID, postID uuid.UUID) (*forumDto.PostResponse, error) {
	post, err := s.repo.FindPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	res, err := s.postResponses(ctx, viewer, []entity.ForumPost{*post})
	if err != nil {
		return nil, err
	}
	return &res[0], nil
}

// postResponses decorates posts with scores, comment counts and the viewer's vote and favorite.
func (s *forumService) postResponses(ctx context.Context, viewer *uuid.UUID, posts []entity.ForumPost) ([]forumDto.PostResponse, error) {
	ids := make([]uuid.UUID, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}

	scores, err := s.repo.Scores(ctx, entity.VotePost, ids)
	if err != nil {
		return nil, err
	}
	counts, err := s.repo.CommentCounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	votes, favs := map[uuid.UUID]int{}, map[uuid.UUID]bool{}
	if viewer != nil {
		if votes, err = s.repo.UserVotes(ctx, *viewer, entity.VotePost, ids); err != nil {
			return nil, err
		}
		if favs, err = s.repo.FavoriteSet(ctx, *viewer, ids); err != nil {
			return nil, err
		}
	}

	out := make([]forumDto.PostResponse, 0, len(posts))
	for i := range posts {
		p := &posts[i]
		res := forumDto.PostResponse{
			ID:           p.ID,
			Title:        p.Title,
			Content:      p.Content,
			Category:     p.Category,
			IsDeleted:    p.IsDeleted(),
			EditedAt:     p.EditedAt,
			Author:       author(&p.User),
			Attachments:  []attachmentDto.AttachmentResponse{},
			Score:        scores[p.ID],
			MyVote:       votes[p.ID],
			Favorited:    favs[p.ID],
			CommentCount: counts[p.ID],
			CreatedAt:    p.CreatedAt,
			UpdatedAt:    p.UpdatedAt,
		}
		for _, a := range p.Attachments {
			res.Attachments = append(res.Attachments, attachmentDto.AttachmentResponse{
				ID:        a.ID,
				FileURL:   a.FileURL,
				FileType:  a.FileType,
				SizeBytes: a.SizeBytes,
				CreatedAt: a.CreatedAt,
			})
		}
		out = append(out, res)
	}
	return out, nil
}

func toCommentResponse(c *entity.ForumComment, score int64, myVote int) *forumDto.CommentResponse {
	return &forumDto.CommentResponse{
		ID:        c.ID,
		PostID:    c.PostID,
		ParentID:  c.ParentID,
		Content:   c.Content,
		IsDeleted: c.IsDeleted(),
		EditedAt:  c.EditedAt,
		Author:    author(&c.User),
		Score:     score,
		MyVote:    myVote,
		Replies:   []*forumDto.CommentResponse{},
		CreatedAt: c.CreatedAt,
	}
}

// buildTree nests replies under their parents, keeping input order at every level.
// A reply whose parent is missing is shown at the top level.
func buildTree(nodes []*forumDto.CommentResponse) []*forumDto.CommentResponse {
	byID := make(map[uuid.UUID]*forumDto.CommentResponse, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	roots := []*forumDto.CommentResponse{}
	for _, n := range nodes {
		if n.ParentID != nil {
			if parent, ok := byID[*n.ParentID]; ok && parent != n {
				parent.Replies = append(parent.Replies, n)
				continue
			}
		}
		roots = append(roots, n)
	}
	return roots
}

func author(u *entity.User) commonDto.AuthorResponse {
	if u == nil || u.ID == uuid.Nil {
		return commonDto.AuthorResponse{Username: "unknown"}
	}
	return commonDto.AuthorResponse{ID: u.ID, Username: u.Username, AvatarURL: u.AvatarURL}
}

func checkEditable(ownerID, actorID uuid.UUID, deleted bool, kind string) error {
	if ownerID != actorID {
		return fmt.Errorf("only the author may edit this %s: %w", kind, apperror.ErrForbidden)
	}
	if deleted {
		return fmt.Errorf("cannot edit a deleted %s: %w", kind, apperror.ErrInvalidInput)
	}
	return nil
}

func cleanPost(title, content string) (string, string, error) {
	title = sanitize.Text(title)
	if title == "" {
		return "", "", fmt.Errorf("title cannot be empty: %w", apperror.ErrInvalidInput)
	}
	content, err := cleanContent(content)
	return title, content, err
}

func cleanContent(content string) (string, error) {
	content = sanitize.HTML(content)
	if sanitize.Text(content) == "" {
		return "", fmt.Errorf("content cannot be empty: %w", apperror.ErrInvalidInput)
	}
	return content, nil
}

func normalizeCategory(c string) string {
	return strings.ToLower(strings.TrimSpace(c))
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
