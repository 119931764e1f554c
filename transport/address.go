package transport

import "fmt"

// BuildAddress formats the collector endpoint URL for one event
// collection:
//
//	https://<host>/<version>/projects/<id>/events/<name>?api_key=<key>
//
// The format is reproduced exactly as existing collectors expect it;
// no escaping is applied to the components.
func BuildAddress(host, version, projectID, writeKey, eventName string) string {
	return fmt.Sprintf("https://%s/%s/projects/%s/events/%s?api_key=%s",
		host, version, projectID, eventName, writeKey)
}
