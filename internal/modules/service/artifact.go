package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/oz-workspace/api/internal/infra/broadcast"
	"github.com/oz-workspace/api/internal/modules/model"
	"github.com/oz-workspace/api/internal/modules/repo"
	"github.com/oz-workspace/api/internal/pkg/apperr"
	"github.com/oz-workspace/api/internal/pkg/types"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type ArtifactService interface {
	// Ingest stores agent-reported artifacts. Per-item failures are logged and
	// skipped; the returned count covers newly created rows only.
	Ingest(ctx context.Context, items []types.ArtifactItem, in IngestContext) int
	ListByRoom(ctx context.Context, workspaceID, roomID uuid.UUID) ([]model.Artifact, error)
	Create(ctx context.Context, in CreateArtifactInput) (*model.Artifact, error)
}

// IngestContext attributes a batch of artifacts to the run that produced them.
type IngestContext struct {
	WorkspaceID uuid.UUID
	RoomID      uuid.UUID
	AgentID     uuid.UUID
	UserID      *uuid.UUID
}

type ArtifactOptions struct {
	// InlineContentLimit is the largest content kept in the row. Zero disables offloading.
	InlineContentLimit int
	PresignExpire      time.Duration
}

type artifactService struct {
	r      repo.ArtifactRepo
	rooms  repo.RoomRepo
	agents repo.AgentRepo
	store  ContentStore
	pub    broadcast.Publisher
	log    *zap.Logger
	opts   ArtifactOptions
}

// NewArtifactService builds the ingestion service. store may be nil.
func NewArtifactService(r repo.ArtifactRepo, rooms repo.RoomRepo, agents repo.AgentRepo, store ContentStore, pub broadcast.Publisher, log *zap.Logger, opts ArtifactOptions) ArtifactService {
	if opts.PresignExpire <= 0 {
		opts.PresignExpire = 15 * time.Minute
	}
	return &artifactService{r: r, rooms: rooms, agents: agents, store: store, pub: pub, log: log, opts: opts}
}

type normalizedArtifact struct {
	Type    string
	Title   string
	URL     *string
	Content string
}

var artifactTypeMap = map[string]string{
	types.RawArtifactPlan:        model.ArtifactTypePlan,
	types.RawArtifactPullRequest: model.ArtifactTypePR,
}

// normalizeArtifact maps an agent descriptor onto the stored artifact fields.
func normalizeArtifact(item types.ArtifactItem) normalizedArtifact {
	raw := item.ArtifactType
	if raw == "" {
		raw = model.ArtifactTypeUnknown
	}

	n := normalizedArtifact{Type: strings.ToLower(raw), Title: raw}
	if t, ok := artifactTypeMap[raw]; ok {
		n.Type = t
	}

	switch raw {
	case types.RawArtifactPlan:
		if title, ok := dataField(item.Data, "title"); ok {
			n.Title = title
		}
		doc, _ := dataField(item.Data, "document_uid")
		n.Content = "document:" + doc
	case types.RawArtifactPullRequest:
		if branch, ok := dataField(item.Data, "branch"); ok {
			n.Title = branch
		}
		if u, ok := dataField(item.Data, "url"); ok {
			n.URL = &u
		}
	}
	return n
}

func dataField(data map[string]any, key string) (string, bool) {
	v, ok := data[key]
	if !ok || v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprint(v), true
}

func (s *artifactService) Ingest(ctx context.Context, items []types.ArtifactItem, in IngestContext) int {
	created := 0
	for _, item := range items {
		n := normalizeArtifact(item)
		agentID := in.AgentID
		a := &model.Artifact{
			RoomID:    in.RoomID,
			Type:      n.Type,
			Title:     n.Title,
			URL:       n.URL,
			Content:   n.Content,
			CreatedBy: &agentID,
			UserID:    in.UserID,
		}
		stored, ok, err := s.persist(ctx, a, in.WorkspaceID)
		if err != nil {
			s.log.Sugar().Errorw("save artifact failed",
				"room_id", in.RoomID, "agent_id", in.AgentID, "type", n.Type, "title", n.Title, "err", err)
			continue
		}
		if !ok {
			s.log.Sugar().Debugw("artifact already stored", "room_id", in.RoomID, "type", n.Type, "title", n.Title)
			continue
		}
		created++
		s.log.Sugar().Infow("artifact saved", "room_id", in.RoomID, "artifact_id", stored.ID, "type", n.Type, "title", n.Title)
	}
	return created
}

// persist de-duplicates, offloads and inserts a, then announces it.
// It reports false without error when an identical artifact already exists.
func (s *artifactService) persist(ctx context.Context, a *model.Artifact, workspaceID uuid.UUID) (*model.Artifact, bool, error) {
	a.DedupeKey = model.ArtifactDedupeKey(a.RoomID, a.Type, a.Title, a.URL, a.Content, a.CreatedBy)
	s.offload(ctx, a)

	ok, err := s.r.CreateIfAbsent(ctx, a)
	if err != nil || !ok {
		return nil, false, err
	}

	stored, err := s.r.GetWithAgent(ctx, a.ID)
	if err != nil {
		s.log.Sugar().Warnw("reload artifact failed", "artifact_id", a.ID, "err", err)
		stored = a
	}
	s.presign(ctx, stored)

	s.pub.Broadcast(broadcast.Event{
		Type:        broadcast.EventArtifact,
		RoomID:      stored.RoomID,
		WorkspaceID: workspaceID,
		Data:        stored,
	})
	return stored, true, nil
}

// offload moves oversized content to the content store and keeps a preview
// in the row. Upload failures leave the content inline.
func (s *artifactService) offload(ctx context.Context, a *model.Artifact) {
	if s.store == nil || s.opts.InlineContentLimit <= 0 || len(a.Content) <= s.opts.InlineContentLimit {
		return
	}
	meta, err := s.store.UploadText(ctx, "artifacts/"+a.RoomID.String(), a.Content, "")
	if err != nil {
		s.log.Sugar().Warnw("offload artifact content failed, storing inline", "room_id", a.RoomID, "err", err)
		return
	}
	a.ContentAsset = datatypes.NewJSONType(model.Asset{
		Bucket: meta.Bucket,
		S3Key:  meta.Key,
		ETag:   meta.ETag,
		SHA256: meta.SHA256,
		MIME:   meta.MIME,
		SizeB:  meta.SizeB,
	})
	a.Content = preview(a.Content, s.opts.InlineContentLimit)
}

func (s *artifactService) presign(ctx context.Context, a *model.Artifact) {
	asset := a.ContentAsset.Data()
	if s.store == nil || asset.Empty() {
		return
	}
	u, err := s.store.PresignGet(ctx, asset.S3Key, s.opts.PresignExpire)
	if err != nil {
		s.log.Sugar().Warnw("presign artifact content failed", "artifact_id", a.ID, "err", err)
		return
	}
	a.ContentURL = u
}

// preview cuts s to at most n bytes on a rune boundary.
func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func (s *artifactService) ListByRoom(ctx context.Context, workspaceID, roomID uuid.UUID) ([]model.Artifact, error) {
	if _, err := s.rooms.GetInWorkspace(ctx, workspaceID, roomID); err != nil {
		return nil, notFoundOr(err, "Not found")
	}
	items, err := s.r.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, apperr.Infra(err)
	}
	for i := range items {
		s.presign(ctx, &items[i])
	}
	return items, nil
}

// CreateArtifactInput is a user-authored artifact.
type CreateArtifactInput struct {
	WorkspaceID uuid.UUID
	UserID      uuid.UUID
	RoomID      uuid.UUID
	Type        string
	Title       string
	Content     string
	URL         *string
	CreatedBy   *uuid.UUID
}

func (s *artifactService) Create(ctx context.Context, in CreateArtifactInput) (*model.Artifact, error) {
	typ := strings.ToLower(strings.TrimSpace(in.Type))
	title := strings.TrimSpace(in.Title)
	if typ == "" || title == "" {
		return nil, apperr.BadRequest("type and title are required")
	}
	if _, err := s.rooms.GetInWorkspace(ctx, in.WorkspaceID, in.RoomID); err != nil {
		return nil, notFoundOr(err, "Room not found")
	}
	if in.CreatedBy != nil {
		if _, err := s.agents.GetInWorkspace(ctx, in.WorkspaceID, *in.CreatedBy); err != nil {
			return nil, notFoundOr(err, "Agent not found")
		}
	}

	userID := in.UserID
	a := &model.Artifact{
		RoomID:    in.RoomID,
		Type:      typ,
		Title:     title,
		Content:   in.Content,
		URL:       in.URL,
		CreatedBy: in.CreatedBy,
		UserID:    &userID,
	}
	stored, ok, err := s.persist(ctx, a, in.WorkspaceID)
	if err != nil {
		return nil, apperr.Infra(err)
	}
	if ok {
		return stored, nil
	}

	existing, err := s.r.GetByDedupeKey(ctx, a.RoomID, a.DedupeKey)
	if err != nil {
		return nil, apperr.Infra(err)
	}
	s.presign(ctx, existing)
	return existing, nil
}
