// Package transport holds the judge worker's Kafka subscription wiring:
// assigning fetch priority across the worker's topics, grounded on
// judge_service/judge.go's defaultTopicWeights/buildWeightedTopics.
package transport

import (
	"fmt"

	"fuzoj/internal/common/mq"
)

// defaultWeights is the priority ladder applied to a worker's topics in
// declaration order when no explicit weight map is configured: the first
// topic (conventionally the highest-priority contest queue) gets fetched
// most often, tailing off to equal weight for anything past the fourth.
var defaultWeights = []int{8, 4, 2, 1}

// DefaultTopicWeights assigns a priority weight to each topic in order,
// used when the operator hasn't configured an explicit topicWeights map.
func DefaultTopicWeights(topics []string) map[string]int {
	out := make(map[string]int, len(topics))
	for i, topic := range topics {
		if topic == "" {
			continue
		}
		if i < len(defaultWeights) {
			out[topic] = defaultWeights[i]
			continue
		}
		out[topic] = 1
	}
	return out
}

// BuildWeightedTopics resolves a topic list against a weight map,
// rejecting any topic left without a positive weight.
func BuildWeightedTopics(topics []string, weights map[string]int) ([]mq.WeightedTopic, error) {
	weighted := make([]mq.WeightedTopic, 0, len(topics))
	for _, topic := range topics {
		weight, ok := weights[topic]
		if !ok || weight <= 0 {
			return nil, fmt.Errorf("invalid topic weight for %s", topic)
		}
		weighted = append(weighted, mq.WeightedTopic{Topic: topic, Weight: weight})
	}
	return weighted, nil
}
