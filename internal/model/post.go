package model

type PostCategory string

const (
	CategoryPost     PostCategory = "Post"
	CategoryThought  PostCategory = "Thought"
	CategoryImage    PostCategory = "Image"
	CategoryQuestion PostCategory = "Question"
	CategoryOther    PostCategory = "Other"
)

// Posts 表字段名
const (
	PostTitle      = "Title"
	PostContent    = "Content"
	PostCategoryF  = "Category"
	PostAuthorID   = "AuthorId"
	PostAuthorName = "AuthorName"
	PostImages     = "Images"
	PostCreatedAt  = "CreatedAt"
	PostUpdatedAt  = "UpdatedAt"
	PostTags       = "Tags"
)

type Post struct {
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	Content    string       `json:"content"`
	Category   PostCategory `json:"category"`
	AuthorID   string       `json:"authorId,omitempty"`
	AuthorName string       `json:"authorName,omitempty"`
	Images     []string     `json:"images,omitempty"`
	CreatedAt  string       `json:"createdAt"`
	UpdatedAt  string       `json:"updatedAt,omitempty"`
	Tags       []string     `json:"tags,omitempty"`
}

// PostFromRecord 作者优先取创建者标记，旧数据回退到 AuthorId/AuthorName
func PostFromRecord(r *Record) Post {
	f := r.Fields
	return Post{
		ID:         r.ID,
		Title:      f.String(PostTitle),
		Content:    f.String(PostContent),
		Category:   PostCategory(f.String(PostCategoryF)),
		AuthorID:   f.StringOr(FieldCreatorID, PostAuthorID),
		AuthorName: f.StringOr(FieldCreator, PostAuthorName),
		Images:     f.AttachmentURLs(PostImages),
		CreatedAt:  f.String(PostCreatedAt),
		UpdatedAt:  f.String(PostUpdatedAt),
		Tags:       f.Strings(PostTags),
	}
}
