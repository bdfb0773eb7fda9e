package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Operator one-off to re-derive a single expert's rating aggregate from the
// ratings collection, for when the write path crashed between the rating
// insert and the aggregate update.
// Usage: go run scripts/recompute_ratings.go <expertId>
func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run scripts/recompute_ratings.go <expertId>")
		os.Exit(1)
	}

	expertHex := os.Args[1]
	expertID, err := primitive.ObjectIDFromHex(expertHex)
	if err != nil {
		fmt.Printf("Invalid expert id: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(os.Getenv("DB_URI")))
	if err != nil {
		fmt.Printf("Error connecting to database: %v\n", err)
		os.Exit(1)
	}
	defer client.Disconnect(ctx)

	db := client.Database(os.Getenv("DB_NAME"))

	cursor, err := db.Collection("ratings").Find(ctx, bson.M{"rating.expert": expertHex})
	if err != nil {
		fmt.Printf("Error fetching ratings: %v\n", err)
		os.Exit(1)
	}

	var ratings []struct {
		Details struct {
			Rating int `bson:"rating"`
		} `bson:"rating"`
	}
	if err := cursor.All(ctx, &ratings); err != nil {
		fmt.Printf("Error decoding ratings: %v\n", err)
		os.Exit(1)
	}

	total := len(ratings)
	sum := 0
	for _, r := range ratings {
		sum += r.Details.Rating
	}
	average := float64(0)
	if total > 0 {
		average = float64(sum) / float64(total)
	}

	res, err := db.Collection("users").UpdateOne(ctx, bson.M{"_id": expertID}, bson.M{"$set": bson.M{
		"user.expertDetails.averageRating": average,
		"user.expertDetails.totalReviews":  total,
		"user.expertDetails.ratingsCount":  total,
	}})
	if err != nil {
		fmt.Printf("Error updating expert: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Expert: %s\n", expertHex)
	fmt.Printf("Ratings found: %d\n", total)
	fmt.Printf("Average: %.2f\n", average)
	fmt.Printf("Users matched: %d\n", res.MatchedCount)
}
