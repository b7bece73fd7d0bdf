package router

import (
	"office-chat/chat"
	"office-chat/socketio"
)

func Socket(server *socketio.Server, protocol *chat.Protocol) {
	server.OnConnection(func(conn *socketio.Conn) {
		protocol.Connect(conn)

		conn.On(chat.EventJoinChat, func(args ...any) {
			protocol.Join(conn, firstArg(args))
		})

		conn.On(chat.EventLeaveChat, func(args ...any) {
			protocol.Leave(conn, firstArg(args))
		})

		conn.On(chat.EventSendMessage, func(args ...any) {
			protocol.Send(conn, firstArg(args))
		})

		conn.OnDisconnect(func() {
			protocol.Disconnect(conn)
		})
	})
}

func firstArg(args []any) any {
	if len(args) == 0 {
		return nil
	}
	return args[0]
}
