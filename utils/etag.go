package utils

import (
	"crypto/md5"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GenerateETag builds a weak validator from a document's id and last-modified
// time, so list and detail endpoints can answer 304 Not Modified.
func GenerateETag(id primitive.ObjectID, updatedAt time.Time) string {
	sum := md5.Sum([]byte(id.Hex() + updatedAt.UTC().Format(time.RFC3339Nano)))
	return fmt.Sprintf(`"%x"`, sum)
}
