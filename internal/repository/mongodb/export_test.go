package mongodb

var (
	RatingUpdate         = ratingUpdate
	RatingsPipeline      = ratingsPipeline
	QuestHistoryPipeline = questHistoryPipeline
)
