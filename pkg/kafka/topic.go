package kafka

// TopicPrefix namespaces every topic published by our services.
const TopicPrefix = "ecommerce"

// Topic returns the topic name for an action on a domain aggregate, e.g.
// Topic("address", "saved") == "ecommerce.address.saved".
func Topic(domain, action string) string {
	return TopicPrefix + "." + domain + "." + action
}
