package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// User types stored in the userType discriminator field
const (
	UserTypeFarmer  = "farmer"
	UserTypeExpert  = "expert"
	UserTypeCompany = "company"
)

// User holds the structure for the user collection in mongo
type User struct {
	ID      primitive.ObjectID `json:"_id" bson:"_id"`
	Details UserDetails        `json:"user" bson:"user"`
	Version int32              `json:"__v" bson:"__v"`
}

// UserDetails holds the structure for the inner user structure as defined in the user collection in mongo.
// The userType discriminator decides which of the optional role payloads applies; handlers branch on
// the discriminator and never on payload presence.
type UserDetails struct {
	Name           string         `json:"name" bson:"name"`
	Email          string         `json:"email" bson:"email"`
	Username       string         `json:"username" bson:"username"`
	Password       string         `json:"password,omitempty" bson:"password"`
	UserType       string         `json:"userType" bson:"userType"`
	ProfilePicture string         `json:"profilePicture" bson:"profilePicture"`
	ExpertDetails  *ExpertDetails `json:"expertDetails,omitempty" bson:"expertDetails,omitempty"`
	FarmDetails    *FarmDetails   `json:"farmDetails,omitempty" bson:"farmDetails,omitempty"`
	Notifications  []Notification `json:"notifications" bson:"notifications"`
	CreatedAt      interface{}    `json:"createdAt" bson:"createdAt"`
	UpdatedAt      interface{}    `json:"updatedAt" bson:"updatedAt"`
}

// ExpertDetails carries the expert role payload, including the denormalized
// rating aggregate re-derived from the ratings collection.
type ExpertDetails struct {
	Specialization    string  `json:"specialization" bson:"specialization"`
	YearsOfExperience int     `json:"yearsOfExperience" bson:"yearsOfExperience"`
	AverageRating     float64 `json:"averageRating" bson:"averageRating"`
	TotalReviews      int     `json:"totalReviews" bson:"totalReviews"`
	RatingsCount      int     `json:"ratingsCount" bson:"ratingsCount"`
}

// FarmDetails carries the farmer role payload.
type FarmDetails struct {
	FarmName     string  `json:"farmName" bson:"farmName"`
	FarmLocation string  `json:"farmLocation" bson:"farmLocation"`
	FarmSizeAcre float64 `json:"farmSizeAcre" bson:"farmSizeAcre"`
}

// IsFarmer reports whether the user acts in the farmer role
func (u User) IsFarmer() bool {
	return u.Details.UserType == UserTypeFarmer
}

// IsExpert reports whether the user acts in the expert role
func (u User) IsExpert() bool {
	return u.Details.UserType == UserTypeExpert
}

// CounterpartType returns the user type expected on the other side of a
// consultation chat room, or empty when the user has no counterpart role.
func (u User) CounterpartType() string {
	switch u.Details.UserType {
	case UserTypeFarmer:
		return UserTypeExpert
	case UserTypeExpert:
		return UserTypeFarmer
	}
	return ""
}
