package keydb

// ChannelKey returns the pub/sub channel name: "{namespace}:{channel}",
// or channel unchanged when namespace is empty.
func ChannelKey(namespace, channel string) string {
	return prefixed(namespace, channel)
}

// QueueKey returns the list key backing a queue: "{namespace}:{queue}",
// or queue unchanged when namespace is empty.
func QueueKey(namespace, queue string) string {
	return prefixed(namespace, queue)
}

// DLQKey returns the dead-letter list key: "{queue key}:dlq"
func DLQKey(namespace, queue string) string {
	return QueueKey(namespace, queue) + ":dlq"
}

func prefixed(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + ":" + name
}
