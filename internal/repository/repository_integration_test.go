//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"animaaz/internal/db"
	"animaaz/internal/models"
	"animaaz/internal/testinfra"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func setupMongo(t *testing.T) (context.Context, *mongo.Database) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	testinfra.SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	t.Cleanup(cancel)

	ep, err := testinfra.NewMongoContainer(ctx)
	if err != nil {
		t.Fatalf("Failed to start MongoDB container: %v", err)
	}
	t.Cleanup(func() { testinfra.CleanupContainer(t, context.Background(), ep.Container) })

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(ep.MongoURI()))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	database := client.Database("animaaz_test")
	if err := db.EnsureIndexes(ctx, database); err != nil {
		t.Fatalf("EnsureIndexes: %v", err)
	}
	return ctx, database
}

func TestRepositories_Mongo(t *testing.T) {
	ctx, database := setupMongo(t)
	anime := NewAnimeRepository(database)

	// A sparse document: counters and likes missing entirely.
	sparseID := primitive.NewObjectID()
	if _, err := database.Collection(db.AnimeCollection).InsertOne(ctx, bson.M{
		"_id": sparseID, "title": "Sparse", "isActive": true, "trending": true,
	}); err != nil {
		t.Fatalf("insert sparse: %v", err)
	}

	now := time.Now().UTC()
	full := &models.Anime{
		Title: "Full", Status: models.StatusOngoing, IsActive: true, Genres: []string{"Action"},
		Views: 100, DummyViews: 20, Likes: []string{"u1", "u2"}, DummyLikes: 50,
		CreatedAt: now, UpdatedAt: now,
	}
	if err := anime.Insert(ctx, full); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	inactive := &models.Anime{Title: "Gone", IsActive: false, Trending: true, Likes: []string{}, CreatedAt: now, UpdatedAt: now}
	if err := anime.Insert(ctx, inactive); err != nil {
		t.Fatalf("Insert inactive: %v", err)
	}

	t.Run("card projection is null safe", func(t *testing.T) {
		cards, err := anime.Candidates(ctx, "")
		if err != nil {
			t.Fatalf("Candidates: %v", err)
		}
		if len(cards) != 2 {
			t.Fatalf("got %d active cards, want 2", len(cards))
		}
		for _, c := range cards {
			switch c.Title {
			case "Sparse":
				if c.Views != 0 || c.LikesCount != 0 || c.DummyLikes != 0 {
					t.Errorf("sparse card = %+v", c)
				}
			case "Full":
				if c.LikesCount != 2 || c.Views != 100 || c.DummyLikes != 50 {
					t.Errorf("full card = %+v", c)
				}
			}
		}
	})

	t.Run("flag membership replaces catalog wide", func(t *testing.T) {
		if _, err := anime.SetFlagMembership(ctx, models.BucketTrending, []primitive.ObjectID{full.ID}); err != nil {
			t.Fatalf("SetFlagMembership: %v", err)
		}
		ids, err := anime.FlaggedIDs(ctx, models.BucketTrending)
		if err != nil {
			t.Fatalf("FlaggedIDs: %v", err)
		}
		if len(ids) != 1 || ids[0] != full.ID.Hex() {
			t.Errorf("trending ids = %v, want only %s", ids, full.ID.Hex())
		}

		if _, err := anime.SetFlagMembership(ctx, models.BucketTrending, nil); err != nil {
			t.Fatalf("clear: %v", err)
		}
		if n, _ := anime.CountFlag(ctx, models.BucketTrending); n != 0 {
			t.Errorf("count after clear = %d", n)
		}
	})

	t.Run("like toggles", func(t *testing.T) {
		a, liked, err := anime.ToggleLike(ctx, sparseID, "u9")
		if err != nil || !liked || len(a.Likes) != 1 {
			t.Fatalf("first toggle = %v %v %v", a, liked, err)
		}
		a, liked, err = anime.ToggleLike(ctx, sparseID, "u9")
		if err != nil || liked || len(a.Likes) != 0 {
			t.Fatalf("second toggle = %v %v %v", a, liked, err)
		}
	})

	t.Run("counters", func(t *testing.T) {
		v := int64(7)
		a, err := anime.SetCounters(ctx, full.ID, &v, nil)
		if err != nil || a.DummyLikes != 7 || a.DummyViews != 20 {
			t.Fatalf("SetCounters = %+v, %v", a, err)
		}
		missing, err := anime.SetCounters(ctx, primitive.NewObjectID(), &v, nil)
		if err != nil || missing != nil {
			t.Fatalf("missing record = %v, %v", missing, err)
		}
	})

	t.Run("curation upsert", func(t *testing.T) {
		buckets := NewCurationRepository(database)
		for _, ids := range [][]string{{full.ID.Hex(), sparseID.Hex()}, {sparseID.Hex()}} {
			if _, err := buckets.Upsert(ctx, &models.CurationBucket{
				Type: models.BucketFeatured, AnimeIDs: ids, UpdatedBy: "admin", UpdatedAt: time.Now().UTC(),
			}); err != nil {
				t.Fatalf("Upsert: %v", err)
			}
		}
		got, err := buckets.Get(ctx, models.BucketFeatured)
		if err != nil || got == nil {
			t.Fatalf("Get = %v, %v", got, err)
		}
		if len(got.AnimeIDs) != 1 || got.AnimeIDs[0] != sparseID.Hex() {
			t.Errorf("animeIds = %v", got.AnimeIDs)
		}
		all, _ := buckets.List(ctx)
		if len(all) != 1 {
			t.Errorf("buckets = %d, want 1", len(all))
		}
		if none, err := buckets.Get(ctx, models.BucketBanner); err != nil || none != nil {
			t.Errorf("absent bucket = %v, %v", none, err)
		}
	})

	t.Run("rating upsert and aggregate", func(t *testing.T) {
		ratings := NewRatingRepository(database)
		steps := []struct {
			user    string
			value   int
			created bool
		}{
			{"u1", 4, true},
			{"u2", 2, true},
			{"u1", 5, false},
		}
		for _, st := range steps {
			created, err := ratings.Upsert(ctx, full.ID, st.user, st.value)
			if err != nil || created != st.created {
				t.Fatalf("Upsert(%s, %d) = %v, %v", st.user, st.value, created, err)
			}
		}
		avg, count, err := ratings.Aggregate(ctx, full.ID)
		if err != nil || count != 2 || avg != 3.5 {
			t.Fatalf("Aggregate = %v, %v, %v", avg, count, err)
		}
		mine, err := ratings.GetOne(ctx, full.ID, "u1")
		if err != nil || mine == nil || mine.Value != 5 {
			t.Errorf("GetOne = %+v, %v", mine, err)
		}
	})

	t.Run("comments in order", func(t *testing.T) {
		comments := NewCommentRepository(database)
		first := &models.Comment{AnimeID: full.ID, UserID: "u1", Text: "one", CreatedAt: time.Now().UTC()}
		if err := comments.Insert(ctx, first); err != nil {
			t.Fatalf("Insert: %v", err)
		}
		reply := &models.Comment{AnimeID: full.ID, UserID: "u2", ParentID: &first.ID, Text: "two", CreatedAt: time.Now().UTC().Add(time.Millisecond)}
		if err := comments.Insert(ctx, reply); err != nil {
			t.Fatalf("Insert reply: %v", err)
		}
		list, err := comments.ListByAnime(ctx, full.ID)
		if err != nil || len(list) != 2 || list[0].Text != "one" || list[1].ParentID == nil {
			t.Fatalf("ListByAnime = %+v, %v", list, err)
		}
	})
}
