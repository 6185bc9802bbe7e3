package mongo

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sngm3741/survey-haven/api/internal/shared"
)

// UserDocument は users コレクションのスキーマ。email/role 以外の項目は Profile にインラインで保持する。
type UserDocument struct {
	ID      primitive.ObjectID `bson:"_id,omitempty"`
	Email   string             `bson:"email"`
	Role    string             `bson:"role,omitempty"`
	Profile bson.M             `bson:",inline"`
}

// VoteTallyDocument は votes 埋め込みドキュメント。
type VoteTallyDocument struct {
	Yes int `bson:"yes"`
	No  int `bson:"no"`
}

// SurveyDocument は surveys コレクションへ書き込む形。記述系の項目は型を決めずにそのまま保存し、
// 未知のフィールドは Extra にインラインで保持する。読み取りは形の揃っていない既存データを
// 受け入れるため bson.M 経由で行う (surveyFromDocument)。
type SurveyDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        any                `bson:"name,omitempty"`
	Email       any                `bson:"email,omitempty"`
	Title       any                `bson:"title,omitempty"`
	Description any                `bson:"description,omitempty"`
	Options     any                `bson:"options,omitempty"`
	Category    any                `bson:"category,omitempty"`
	Deadline    any                `bson:"deadline,omitempty"`
	YesCount    int                `bson:"yesCount"`
	NoCount     int                `bson:"noCount"`
	TotalVote   int                `bson:"totalVote"`
	Status      any                `bson:"status,omitempty"`
	Date        any                `bson:"date,omitempty"`
	Comments    bson.A             `bson:"comments,omitempty"`
	Votes       *VoteTallyDocument `bson:"votes,omitempty"`
	Extra       bson.M             `bson:",inline"`
}

var userReservedKeys = []string{"_id", "email", "role"}

var surveyReservedKeys = []string{
	"_id", "name", "email", "title", "description", "options", "category", "deadline",
	"yesCount", "noCount", "totalVote", "status", "date", "comments", "votes",
}

// objectIDFromHex は 16 進文字列の ID を ObjectID に変換する。不正な形式は shared.ErrInvalidID。
func objectIDFromHex(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", shared.ErrInvalidID, id)
	}
	return oid, nil
}

// objectIDString renders ids returned by the driver (InsertedID, UpsertedID).
func objectIDString(id any) string {
	switch v := id.(type) {
	case nil:
		return ""
	case primitive.ObjectID:
		return v.Hex()
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// withoutKeys copies src without the reserved keys so that inline maps never
// collide with struct fields when encoding.
func withoutKeys(src map[string]any, reserved []string) bson.M {
	if len(src) == 0 {
		return nil
	}
	dst := make(bson.M, len(src))
	for key, value := range src {
		dst[key] = value
	}
	for _, key := range reserved {
		delete(dst, key)
	}
	if len(dst) == 0 {
		return nil
	}
	return dst
}

// toPlain converts driver values into plain Go values that encode cleanly to JSON.
func toPlain(value any) any {
	switch v := value.(type) {
	case primitive.D:
		out := make(map[string]any, len(v))
		for _, elem := range v {
			out[elem.Key] = toPlain(elem.Value)
		}
		return out
	case primitive.M:
		out := make(map[string]any, len(v))
		for key, elem := range v {
			out[key] = toPlain(elem)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, elem := range v {
			out[key] = toPlain(elem)
		}
		return out
	case primitive.A:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = toPlain(elem)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = toPlain(elem)
		}
		return out
	case primitive.ObjectID:
		return v.Hex()
	case primitive.DateTime:
		return v.Time().UTC().Format(time.RFC3339Nano)
	case primitive.Decimal128:
		return v.String()
	default:
		return v
	}
}

func plainMap(src bson.M) map[string]any {
	if len(src) == 0 {
		return nil
	}
	return toPlain(src).(map[string]any)
}

// counterValue reads a stored counter. Any numeric BSON type is accepted and
// truncated to an int; null, a missing field and non-numeric values count as 0.
func counterValue(value any) int {
	switch v := value.(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return int(v)
	case primitive.Decimal128:
		f, err := strconv.ParseFloat(v.String(), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		return int(f)
	default:
		return 0
	}
}

// embeddedDocument returns the fields of an embedded document without
// converting their values, or false when value is not a document.
func embeddedDocument(value any) (map[string]any, bool) {
	switch v := value.(type) {
	case primitive.M:
		return v, true
	case map[string]any:
		return v, true
	case primitive.D:
		out := make(map[string]any, len(v))
		for _, elem := range v {
			out[elem.Key] = elem.Value
		}
		return out, true
	default:
		return nil, false
	}
}
