package main

import (
	"chat-gateway/codec"
	"chat-gateway/contract"
	"chat-gateway/infrastructure/broker/badgerlog"
	"chat-gateway/infrastructure/storage"
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
	"github.com/nats-io/nats.go"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

func main() {
	dbPath := flag.String("db", database.DefaultPath, "Path to badger DB")
	topic := flag.String("topic", "", "Dump the records of this topic instead of the summary")
	limit := flag.Int("limit", 50, "Maximum number of records to dump")
	natsURL := flag.String("nats", "", "List the servers registered in the JetStream buckets of this NATS server instead")
	kvPrefix := flag.String("kv-prefix", "chat", "Bucket prefix of the JetStream presence store")
	flag.Parse()

	logger := logs.GetLoggerFromString("ERROR")
	if *natsURL != "" {
		if err := printClusterServers(*natsURL, *kvPrefix, logger); err != nil {
			log.Fatal(err)
		}
		return
	}

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	broker := badgerlog.NewBroker(db, logger, 0)

	if *topic != "" {
		if err := dumpTopic(broker, *topic, *limit); err != nil {
			log.Fatal(err)
		}
		return
	}

	if err := printTopics(broker); err != nil {
		log.Fatal(err)
	}
	if err := printServers(storage.NewPresenceRepository(db, logger)); err != nil {
		log.Fatal(err)
	}
}

func newTable(header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func printTopics(broker *badgerlog.Broker) error {
	stats, err := broker.Stats()
	if err != nil {
		return err
	}
	table := newTable([]string{"Topic", "Records", "First", "Last", "Subscribers"})
	for _, s := range stats {
		subscribers := lo.Keys(s.Subscribers)
		sort.Strings(subscribers)
		positions := lo.Map(subscribers, func(name string, _ int) string {
			return fmt.Sprintf("%s@%d", name, s.Subscribers[name])
		})
		table.Append([]string{
			s.Topic,
			strconv.Itoa(s.Records),
			strconv.FormatUint(s.FirstOffset, 10),
			strconv.FormatUint(s.LastOffset, 10),
			strings.Join(positions, " "),
		})
	}
	table.Render()
	return nil
}

func printClusterServers(url, prefix string, logger *slog.Logger) error {
	nc, err := nats.Connect(url, nats.Name("chat-inspect"))
	if err != nil {
		return fmt.Errorf("nats connection failed: %w", err)
	}
	defer nc.Close()
	presence, err := storage.NewKVPresenceRepository(nc, logger, storage.KVOptions{Prefix: prefix, BindOnly: true})
	if err != nil {
		return err
	}
	return printServers(presence)
}

func printServers(presence contract.PresenceStore) error {
	servers, err := presence.ListServers(context.Background())
	if err != nil {
		return err
	}
	fmt.Println()
	table := newTable([]string{"Server", "Address", "Started"})
	for _, s := range servers {
		table.Append([]string{
			strconv.FormatInt(s.ID, 10),
			fmt.Sprintf("%s:%d", s.Host, s.Port),
			s.StartedAt.Format(time.RFC3339),
		})
	}
	table.Render()
	return nil
}

func dumpTopic(broker *badgerlog.Broker, topic string, limit int) error {
	ctx := context.Background()
	sub, err := broker.Seek(ctx, topic, time.Time{})
	if err != nil {
		return err
	}
	defer sub.Close()

	records, err := sub.Fetch(ctx, limit)
	if err != nil {
		return err
	}
	table := newTable([]string{"Offset", "Key", "Type", "Group", "Server", "User", "Content", "Created"})
	for _, r := range records {
		m, err := codec.DecodeMessage(r.Value)
		if err != nil {
			table.Append([]string{strconv.FormatUint(r.Offset, 10), r.Key, "UNDECODABLE", "", "", "", err.Error(), ""})
			continue
		}
		table.Append([]string{
			strconv.FormatUint(r.Offset, 10),
			r.Key,
			m.Type.String(),
			m.GroupID.String(),
			strconv.FormatInt(m.ServerID, 10),
			m.FromUser,
			m.Content,
			m.CreatedAt.UTC().Format("15:04:05.000"),
		})
	}
	table.Render()
	return nil
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)
	return badger.Open(opts)
}
