package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/Rida-Lamiini/Chat-app/internal/models"
)

const (
	usersCollection     = "users"
	userChatsCollection = "userchats"
	chatsCollection     = "chats"
)

// MongoStore implements Store over three collections. Subscriptions are
// backed by change streams filtered to a single document key, so the
// backend needs a replica set (or Atlas), same as any change-stream
// consumer.
type MongoStore struct {
	users     *mongo.Collection
	userchats *mongo.Collection
	chats     *mongo.Collection
	log       *zap.SugaredLogger
}

func NewMongoStore(db *mongo.Database, log *zap.SugaredLogger) *MongoStore {
	users := db.Collection(usersCollection)
	// email carries a unique constraint so signup uniqueness is enforced
	// store-side, not just by the pre-insert check
	if _, err := users.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetSparse(true),
	}); err != nil {
		log.Warnw("create email index", "err", err)
	}
	return &MongoStore{
		users:     users,
		userchats: db.Collection(userChatsCollection),
		chats:     db.Collection(chatsCollection),
		log:       log,
	}
}

func (s *MongoStore) GetProfile(ctx context.Context, id string) (*models.UserProfile, error) {
	var p models.UserProfile
	if err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *MongoStore) GetProfileByEmail(ctx context.Context, email string) (*models.UserProfile, error) {
	var p models.UserProfile
	if err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&p); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *MongoStore) ListProfiles(ctx context.Context) ([]models.UserProfile, error) {
	cur, err := s.users.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.UserProfile
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) CreateProfile(ctx context.Context, p *models.UserProfile) error {
	if p.Blocked == nil {
		p.Blocked = []string{}
	}
	_, err := s.users.InsertOne(ctx, p)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (s *MongoStore) SetBlocked(ctx context.Context, ownerID, blockedID string, blocked bool) error {
	var update bson.M
	if blocked {
		update = bson.M{"$addToSet": bson.M{"blocked": blockedID}}
	} else {
		update = bson.M{"$pull": bson.M{"blocked": blockedID}}
	}
	res, err := s.users.UpdateByID(ctx, ownerID, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) GetMembershipList(ctx context.Context, ownerID string) (*models.MembershipList, error) {
	var l models.MembershipList
	if err := s.userchats.FindOne(ctx, bson.M{"_id": ownerID}).Decode(&l); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (s *MongoStore) CreateMembershipList(ctx context.Context, ownerID string) error {
	_, err := s.userchats.InsertOne(ctx, models.MembershipList{OwnerID: ownerID, Chats: []models.MembershipEntry{}})
	return err
}

func (s *MongoStore) AppendMembershipEntry(ctx context.Context, ownerID string, e models.MembershipEntry) error {
	res, err := s.userchats.UpdateByID(ctx, ownerID, bson.M{"$push": bson.M{"chats": e}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) UpdateMembershipEntry(ctx context.Context, ownerID, chatID, lastMessage string, seen bool, updatedAt int64) error {
	filter := bson.M{"_id": ownerID, "chats.chat_id": chatID}
	update := bson.M{"$set": bson.M{
		"chats.$.last_message": lastMessage,
		"chats.$.is_seen":      seen,
		"chats.$.updated_at":   updatedAt,
	}}
	res, err := s.userchats.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	var c models.Conversation
	if err := s.chats.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *MongoStore) CreateConversation(ctx context.Context, c *models.Conversation) error {
	if c.Messages == nil {
		c.Messages = []models.Message{}
	}
	_, err := s.chats.InsertOne(ctx, c)
	return err
}

func (s *MongoStore) AppendMessage(ctx context.Context, chatID string, m models.Message) error {
	res, err := s.chats.UpdateByID(ctx, chatID, bson.M{"$push": bson.M{"messages": m}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) WatchMembershipList(ctx context.Context, ownerID string) (*MembershipSubscription, error) {
	initial, err := s.GetMembershipList(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("watch userchats/%s: %w", ownerID, err)
	}
	cs, err := watchDocument(ctx, s.userchats, ownerID)
	if err != nil {
		return nil, fmt.Errorf("watch userchats/%s: %w", ownerID, err)
	}

	ch := make(chan models.MembershipList, 1)
	streamCtx, cancel := context.WithCancel(context.Background())
	go func() {
		defer close(ch)
		defer cs.Close(context.Background())
		send := func(l models.MembershipList) bool {
			select {
			case ch <- l:
				return true
			case <-streamCtx.Done():
				return false
			}
		}
		if !send(*initial) {
			return
		}
		for cs.Next(streamCtx) {
			var ev struct {
				FullDocument models.MembershipList `bson:"fullDocument"`
			}
			if err := cs.Decode(&ev); err != nil {
				s.log.Errorw("decode userchats change", "owner", ownerID, "err", err)
				continue
			}
			if !send(ev.FullDocument) {
				return
			}
		}
		if err := cs.Err(); err != nil && streamCtx.Err() == nil {
			s.log.Errorw("userchats change stream ended", "owner", ownerID, "err", err)
		}
	}()
	return NewMembershipSubscription(ch, cancel), nil
}

func (s *MongoStore) WatchConversation(ctx context.Context, chatID string) (*ConversationSubscription, error) {
	initial, err := s.GetConversation(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("watch chats/%s: %w", chatID, err)
	}
	cs, err := watchDocument(ctx, s.chats, chatID)
	if err != nil {
		return nil, fmt.Errorf("watch chats/%s: %w", chatID, err)
	}

	ch := make(chan models.Conversation, 1)
	streamCtx, cancel := context.WithCancel(context.Background())
	go func() {
		defer close(ch)
		defer cs.Close(context.Background())
		send := func(c models.Conversation) bool {
			select {
			case ch <- c:
				return true
			case <-streamCtx.Done():
				return false
			}
		}
		if !send(*initial) {
			return
		}
		for cs.Next(streamCtx) {
			var ev struct {
				FullDocument models.Conversation `bson:"fullDocument"`
			}
			if err := cs.Decode(&ev); err != nil {
				s.log.Errorw("decode chats change", "chat", chatID, "err", err)
				continue
			}
			if !send(ev.FullDocument) {
				return
			}
		}
		if err := cs.Err(); err != nil && streamCtx.Err() == nil {
			s.log.Errorw("chats change stream ended", "chat", chatID, "err", err)
		}
	}()
	return NewConversationSubscription(ch, cancel), nil
}

// watchDocument opens a change stream scoped to a single document key,
// with the full post-image of the document attached to every event.
func watchDocument(ctx context.Context, coll *mongo.Collection, id string) (*mongo.ChangeStream, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{{Key: "documentKey._id", Value: id}}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	return coll.Watch(ctx, pipeline, opts)
}
