/*
Package events provides an in-memory event broker for coordinator change
notifications.

Every mutation made through the manager facade is published as an Event: domain
group version changes, ring group mode changes, host state transitions, command
queue changes and partition assignment changes. The conductor subscribes and runs
a transition cycle whenever something changes, in addition to its fixed interval.

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	for ev := range sub {
		fmt.Println(ev.Type, ev.Metadata[events.MetaHost])
	}

# Delivery

Publish hands the event to a buffered channel (100 events); the broadcast loop
copies it to every subscriber channel (50 events each). A subscriber whose buffer
is full misses the event. That is acceptable for this system: consumers never act
on event payloads, they re-read the store, and the conductor also ticks on an
interval, so a dropped notification only delays the next cycle.
*/
package events
